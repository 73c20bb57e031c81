package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/devconnect/backend/internal/database"
	"github.com/devconnect/backend/internal/models"
	"github.com/devconnect/backend/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Follow{},
		&models.Post{},
		&models.PostLike{},
		&models.Comment{},
		&models.CommentLike{},
		&models.Project{},
	))

	database.DB = db
}

// mockUploader records storage calls instead of talking to S3
type mockUploader struct {
	uploaded []string
	deleted  []string
	err      error
}

func (m *mockUploader) UploadProfileImage(ctx context.Context, file multipart.File, header *multipart.FileHeader, userID string) (*storage.UploadResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	key := storage.ProfileImageKey(userID, filepath.Ext(header.Filename))
	m.uploaded = append(m.uploaded, key)
	return &storage.UploadResult{Key: key, URL: "https://images.test/" + key}, nil
}

func (m *mockUploader) UploadPostImage(ctx context.Context, file multipart.File, header *multipart.FileHeader, userID string) (*storage.UploadResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	key := fmt.Sprintf("posts/image_%s_%d", userID, len(m.uploaded))
	m.uploaded = append(m.uploaded, key)
	return &storage.UploadResult{Key: key + ".png", URL: "https://images.test/" + key + ".png"}, nil
}

func (m *mockUploader) DeleteByPublicID(ctx context.Context, publicID string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, publicID)
	return nil
}

func setupTest(t *testing.T) (*gin.Engine, *mockUploader) {
	setupTestDB(t)
	gin.SetMode(gin.TestMode)

	uploader := &mockUploader{}
	h := NewHandlers(uploader, nil)

	router := gin.New()
	router.POST("/create-user", h.CreateUser)
	router.GET("/get-users", h.GetUsers)
	router.GET("/get-userData", h.GetUserData)
	router.POST("/update-userData", h.UpdateUserData)
	router.POST("/follow", h.Follow)
	router.POST("/delete-user-references", h.DeleteUserReferences)
	router.POST("/create-post", h.CreatePost)
	router.GET("/get-posts", h.GetPosts)
	router.POST("/like-post", h.LikePost)
	router.POST("/edit-post", h.EditPost)
	router.POST("/delete-post", h.DeletePost)
	router.GET("/get-comments", h.GetComments)
	router.POST("/like-comment", h.LikeComment)
	router.POST("/delete-comment", h.DeleteComment)
	router.POST("/create-project", h.CreateProject)
	router.GET("/get-projects", h.GetProjects)
	router.POST("/edit-project", h.EditProject)
	router.POST("/delete-project", h.DeleteProject)
	router.POST("/upload-profile", h.UploadProfile)
	router.POST("/delete-profile", h.DeleteProfile)
	router.POST("/delete-post-image", h.DeletePostImage)
	return router, uploader
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func createUser(t *testing.T, id, username string) {
	require.NoError(t, database.DB.Create(&models.User{
		ID:       id,
		Username: username,
		Skills:   models.StringArray{},
	}).Error)
}

func createPost(t *testing.T, ownerID, content string) string {
	post := models.Post{
		UserID:  ownerID,
		Content: content,
		Tags:    models.StringArray{},
		Images:  models.StringArray{},
	}
	require.NoError(t, database.DB.Create(&post).Error)
	return post.ID
}

func createComment(t *testing.T, postID, ownerID, authorID, content string) string {
	comment := models.Comment{
		PostID:      postID,
		PostOwnerID: ownerID,
		AuthorID:    authorID,
		Content:     content,
	}
	require.NoError(t, database.DB.Create(&comment).Error)
	require.NoError(t, database.DB.Model(&models.Post{}).Where("id = ?", postID).
		UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error)
	return comment.ID
}

func stringSlice(t *testing.T, v interface{}) []string {
	items, ok := v.([]interface{})
	require.True(t, ok, "expected array, got %T", v)
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.(string))
	}
	return out
}

func TestCreateUser(t *testing.T) {
	router, _ := setupTest(t)

	w := doJSON(t, router, "POST", "/create-user", map[string]interface{}{
		"uid":      "alice",
		"username": "Alice",
		"bio":      "backend things",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "User created successfully", decode(t, w)["message"])

	var user models.User
	require.NoError(t, database.DB.First(&user, "id = ?", "alice").Error)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "backend things", user.Bio)
}

func TestCreateUserDuplicate(t *testing.T) {
	router, _ := setupTest(t)
	createUser(t, "alice", "alice")

	w := doJSON(t, router, "POST", "/create-user", map[string]interface{}{
		"uid": "alice", "username": "alice",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Same username under a different uid is still a conflict
	w = doJSON(t, router, "POST", "/create-user", map[string]interface{}{
		"uid": "alice2", "username": "ALICE",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateUserMissingFields(t *testing.T) {
	router, _ := setupTest(t)

	w := doJSON(t, router, "POST", "/create-user", map[string]interface{}{"username": "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doJSON(t, router, "POST", "/create-user", map[string]interface{}{"uid": "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestGetUserDataFreshProfile(t *testing.T) {
	router, _ := setupTest(t)
	createUser(t, "alice", "alice")

	w := doJSON(t, router, "GET", "/get-userData?uid=alice", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "alice", body["uid"])
	assert.Empty(t, stringSlice(t, body["followers"]))
	assert.Empty(t, stringSlice(t, body["following"]))
	assert.Empty(t, stringSlice(t, body["posts"]))
	assert.Empty(t, stringSlice(t, body["projects"]))
	assert.Empty(t, stringSlice(t, body["skills"]))
}

func TestGetUserDataUnknownUID(t *testing.T) {
	router, _ := setupTest(t)

	w := doJSON(t, router, "GET", "/get-userData?uid=nobody", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "{}", w.Body.String())
}

func TestUpdateUserData(t *testing.T) {
	router, _ := setupTest(t)
	createUser(t, "alice", "alice")

	w := doJSON(t, router, "POST", "/update-userData?uid=alice", map[string]interface{}{
		"bio":      "updated bio",
		"jobTitle": "engineer",
		"skills":   []string{"go", "postgres"},
		"uid":      "attacker", // not an updatable field, must be dropped
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Data updated successfully", decode(t, w)["message"])

	var user models.User
	require.NoError(t, database.DB.First(&user, "id = ?", "alice").Error)
	assert.Equal(t, "updated bio", user.Bio)
	assert.Equal(t, "engineer", user.JobTitle)
	assert.Equal(t, models.StringArray{"go", "postgres"}, user.Skills)
}

func TestUpdateUserDataUnknownUID(t *testing.T) {
	router, _ := setupTest(t)

	w := doJSON(t, router, "POST", "/update-userData?uid=nobody", map[string]interface{}{
		"bio": "hello",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFollowSymmetry(t *testing.T) {
	router, _ := setupTest(t)
	createUser(t, "alice", "alice")
	createUser(t, "bob", "bob")

	w := doJSON(t, router, "POST", "/follow", map[string]interface{}{
		"targetUid": "bob", "followerUid": "alice", "following": false,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Followed", decode(t, w)["message"])

	// Both profiles must reflect the same edge
	alice := decode(t, doJSON(t, router, "GET", "/get-userData?uid=alice", nil))
	bob := decode(t, doJSON(t, router, "GET", "/get-userData?uid=bob", nil))
	assert.Equal(t, []string{"bob"}, stringSlice(t, alice["following"]))
	assert.Equal(t, []string{"alice"}, stringSlice(t, bob["followers"]))
	assert.Empty(t, stringSlice(t, alice["followers"]))
	assert.Empty(t, stringSlice(t, bob["following"]))

	// Unfollow removes the edge from both sides
	w = doJSON(t, router, "POST", "/follow", map[string]interface{}{
		"targetUid": "bob", "followerUid": "alice", "following": true,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Unfollowed", decode(t, w)["message"])

	alice = decode(t, doJSON(t, router, "GET", "/get-userData?uid=alice", nil))
	bob = decode(t, doJSON(t, router, "GET", "/get-userData?uid=bob", nil))
	assert.Empty(t, stringSlice(t, alice["following"]))
	assert.Empty(t, stringSlice(t, bob["followers"]))
}

func TestFollowRetryIsIdempotent(t *testing.T) {
	router, _ := setupTest(t)
	createUser(t, "alice", "alice")
	createUser(t, "bob", "bob")

	for i := 0; i < 3; i++ {
		w := doJSON(t, router, "POST", "/follow", map[string]interface{}{
			"targetUid": "bob", "followerUid": "alice", "following": false,
		})
		assert.Equal(t, http.StatusOK, w.Code)
	}

	var edges int64
	require.NoError(t, database.DB.Model(&models.Follow{}).Count(&edges).Error)
	assert.EqualValues(t, 1, edges)
}

func TestFollowSelf(t *testing.T) {
	router, _ := setupTest(t)
	createUser(t, "alice", "alice")

	w := doJSON(t, router, "POST", "/follow", map[string]interface{}{
		"targetUid": "alice", "followerUid": "alice", "following": false,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFollowUnknownUser(t *testing.T) {
	router, _ := setupTest(t)
	createUser(t, "alice", "alice")

	w := doJSON(t, router, "POST", "/follow", map[string]interface{}{
		"targetUid": "ghost", "followerUid": "alice", "following": false,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	var edges int64
	require.NoError(t, database.DB.Model(&models.Follow{}).Count(&edges).Error)
	assert.Zero(t, edges)
}

func TestCreatePost(t *testing.T) {
	router, _ := setupTest(t)
	createUser(t, "alice", "alice")

	w := doJSON(t, router, "POST", "/create-post", map[string]interface{}{
		"uid": "alice", "content": "hello world", "tags": []string{"go"},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Post created successfully", decode(t, w)["message"])

	var post models.Post
	require.NoError(t, database.DB.First(&post, "user_id = ?", "alice").Error)
	assert.Equal(t, "hello world", post.Content)
	assert.Equal(t, models.StringArray{"go"}, post.Tags)
}

func TestCreatePostValidation(t *testing.T) {
	router, _ := setupTest(t)
	createUser(t, "alice", "alice")

	// Neither content nor images
	w := doJSON(t, router, "POST", "/create-post", map[string]interface{}{
		"uid": "alice", "content": "   ",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// Unknown owner
	w = doJSON(t, router, "POST", "/create-post", map[string]interface{}{
		"uid": "ghost", "content": "hi",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetPostsOldestFirst(t *testing.T) {
	router, _ := setupTest(t)
	createUser(t, "alice", "alice")
	first := createPost(t, "alice", "first")
	second := createPost(t, "alice", "second")

	w := doJSON(t, router, "GET", "/get-posts", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var posts []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &posts))
	require.Len(t, posts, 2)
	assert.Equal(t, first, posts[0]["docId"])
	assert.Equal(t, second, posts[1]["docId"])
	assert.Empty(t, stringSlice(t, posts[0]["likes"]))
	assert.Empty(t, stringSlice(t, posts[0]["comments"]))
}

func TestLikePostToggleRoundTrip(t *testing.T) {
	router, _ := setupTest(t)
	createUser(t, "alice", "alice")
	createUser(t, "bob", "bob")
	postID := createPost(t, "alice", "a post")

	like := func(liked bool) *httptest.ResponseRecorder {
		return doJSON(t, router, "POST", "/like-post", map[string]interface{}{
			"postId": postID, "userId": "bob", "postOwnerId": "alice", "liked": liked,
		})
	}

	w := like(false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Post liked successfully", decode(t, w)["message"])

	// A retried like request changes nothing
	w = like(false)
	assert.Equal(t, http.StatusOK, w.Code)

	var likes int64
	require.NoError(t, database.DB.Model(&models.PostLike{}).
		Where("post_id = ?", postID).Count(&likes).Error)
	assert.EqualValues(t, 1, likes)

	var post models.Post
	require.NoError(t, database.DB.First(&post, "id = ?", postID).Error)
	assert.Equal(t, 1, post.LikeCount)

	// Toggle back
	w = like(true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Post unliked successfully", decode(t, w)["message"])

	require.NoError(t, database.DB.Model(&models.PostLike{}).
		Where("post_id = ?", postID).Count(&likes).Error)
	assert.Zero(t, likes)
	require.NoError(t, database.DB.First(&post, "id = ?", postID).Error)
	assert.Zero(t, post.LikeCount)

	// Unliking when no like exists leaves the counter alone
	w = like(true)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, database.DB.First(&post, "id = ?", postID).Error)
	assert.Zero(t, post.LikeCount)
}

func TestLikePostUnknownPost(t *testing.T) {
	router, _ := setupTest(t)
	createUser(t, "bob", "bob")

	w := doJSON(t, router, "POST", "/like-post", map[string]interface{}{
		"postId": "missing", "userId": "bob", "liked": false,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEditPost(t *testing.T) {
	router, _ := setupTest(t)
	createUser(t, "alice", "alice")
	postID := createPost(t, "alice", "before")

	w := doJSON(t, router, "POST", "/edit-post", map[string]interface{}{
		"docId": postID,
		"updatedData": map[string]interface{}{
			"uid": "alice", "content": "after", "tags": []string{"go", "gin"},
		},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Post updated successfully", decode(t, w)["message"])

	var post models.Post
	require.NoError(t, database.DB.First(&post, "id = ?", postID).Error)
	assert.Equal(t, "after", post.Content)
	assert.Equal(t, models.StringArray{"go", "gin"}, post.Tags)
}

func TestEditPostForbiddenForNonOwner(t *testing.T) {
	router, _ := setupTest(t)
	createUser(t, "alice", "alice")
	createUser(t, "mallory", "mallory")
	postID := createPost(t, "alice", "mine")

	w := doJSON(t, router, "POST", "/edit-post", map[string]interface{}{
		"docId": postID,
		"updatedData": map[string]interface{}{
			"uid": "mallory", "content": "stolen",
		},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	var post models.Post
	require.NoError(t, database.DB.First(&post, "id = ?", postID).Error)
	assert.Equal(t, "mine", post.Content)
}

func TestDeletePostCascades(t *testing.T) {
	router, uploader := setupTest(t)
	createUser(t, "alice", "alice")
	createUser(t, "bob", "bob")
	postID := createPost(t, "alice", "doomed")
	commentID := createComment(t, postID, "alice", "bob", "nice")
	require.NoError(t, database.DB.Create(&models.PostLike{PostID: postID, UserID: "bob"}).Error)
	require.NoError(t, database.DB.Create(&models.CommentLike{CommentID: commentID, UserID: "alice"}).Error)

	w := doJSON(t, router, "POST", "/delete-post", map[string]interface{}{
		"docId": postID,
		"uid":   "alice",
		"imageUrls": []string{
			"https://images.test/posts/image_alice_1700000000000_42.png",
			"https://example.com/unrelated.png",
		},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Post deleted successfully", decode(t, w)["message"])

	var count int64
	database.DB.Model(&models.Post{}).Where("id = ?", postID).Count(&count)
	assert.Zero(t, count)
	database.DB.Model(&models.Comment{}).Where("post_id = ?", postID).Count(&count)
	assert.Zero(t, count)
	database.DB.Model(&models.PostLike{}).Where("post_id = ?", postID).Count(&count)
	assert.Zero(t, count)
	database.DB.Model(&models.CommentLike{}).Where("comment_id = ?", commentID).Count(&count)
	assert.Zero(t, count)

	// Only the hosted image is deleted, with its extension stripped
	assert.Equal(t, []string{"posts/image_alice_1700000000000_42"}, uploader.deleted)
}

func TestDeletePostForbiddenForNonOwner(t *testing.T) {
	router, _ := setupTest(t)
	createUser(t, "alice", "alice")
	createUser(t, "mallory", "mallory")
	postID := createPost(t, "alice", "keep me")

	w := doJSON(t, router, "POST", "/delete-post", map[string]interface{}{
		"docId": postID, "uid": "mallory",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	var count int64
	database.DB.Model(&models.Post{}).Where("id = ?", postID).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestGetComments(t *testing.T) {
	router, _ := setupTest(t)
	createUser(t, "alice", "alice")
	createUser(t, "bob", "bob")
	postID := createPost(t, "alice", "a post")
	first := createComment(t, postID, "alice", "bob", "first!")
	second := createComment(t, postID, "alice", "alice", "thanks")
	require.NoError(t, database.DB.Create(&models.CommentLike{CommentID: first, UserID: "alice"}).Error)

	w := doJSON(t, router, "GET", "/get-comments?postId="+postID+"&userId=alice", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var comments []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &comments))
	require.Len(t, comments, 2)
	assert.Equal(t, first, comments[0]["id"])
	assert.Equal(t, second, comments[1]["id"])
	assert.Equal(t, []string{"alice"}, stringSlice(t, comments[0]["likes"]))
	assert.Empty(t, stringSlice(t, comments[1]["likes"]))
}

func TestGetCommentsOwnerMismatch(t *testing.T) {
	router, _ := setupTest(t)
	createUser(t, "alice", "alice")
	postID := createPost(t, "alice", "a post")

	w := doJSON(t, router, "GET", "/get-comments?postId="+postID+"&userId=bob", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetCommentsUnknownPost(t *testing.T) {
	router, _ := setupTest(t)

	w := doJSON(t, router, "GET", "/get-comments?postId=missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLikeCommentToggleRoundTrip(t *testing.T) {
	router, _ := setupTest(t)
	createUser(t, "alice", "alice")
	createUser(t, "bob", "bob")
	postID := createPost(t, "alice", "a post")
	commentID := createComment(t, postID, "alice", "bob", "nice")

	like := func(liked bool) *httptest.ResponseRecorder {
		return doJSON(t, router, "POST", "/like-comment", map[string]interface{}{
			"commentId": commentID, "postId": postID, "userId": "alice", "liked": liked,
		})
	}

	w := like(false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Comment liked successfully", decode(t, w)["message"])

	// Retry does not double count
	like(false)

	var comment models.Comment
	require.NoError(t, database.DB.First(&comment, "id = ?", commentID).Error)
	assert.Equal(t, 1, comment.LikeCount)

	w = like(true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Comment unliked successfully", decode(t, w)["message"])

	require.NoError(t, database.DB.First(&comment, "id = ?", commentID).Error)
	assert.Zero(t, comment.LikeCount)

	var likes int64
	database.DB.Model(&models.CommentLike{}).Where("comment_id = ?", commentID).Count(&likes)
	assert.Zero(t, likes)
}

func TestDeleteCommentByAuthor(t *testing.T) {
	router, _ := setupTest(t)
	createUser(t, "alice", "alice")
	createUser(t, "bob", "bob")
	postID := createPost(t, "alice", "a post")
	commentID := createComment(t, postID, "alice", "bob", "delete me")
	require.NoError(t, database.DB.Create(&models.CommentLike{CommentID: commentID, UserID: "alice"}).Error)

	w := doJSON(t, router, "POST", "/delete-comment", map[string]interface{}{
		"commentId": commentID, "postId": postID, "uid": "bob",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Comment deleted successfully", decode(t, w)["message"])

	var count int64
	database.DB.Model(&models.Comment{}).Where("id = ?", commentID).Count(&count)
	assert.Zero(t, count)
	database.DB.Model(&models.CommentLike{}).Where("comment_id = ?", commentID).Count(&count)
	assert.Zero(t, count)

	var post models.Post
	require.NoError(t, database.DB.First(&post, "id = ?", postID).Error)
	assert.Zero(t, post.CommentCount)
}

func TestDeleteCommentByPostOwner(t *testing.T) {
	router, _ := setupTest(t)
	createUser(t, "alice", "alice")
	createUser(t, "bob", "bob")
	postID := createPost(t, "alice", "a post")
	commentID := createComment(t, postID, "alice", "bob", "rude comment")

	w := doJSON(t, router, "POST", "/delete-comment", map[string]interface{}{
		"commentId": commentID, "postId": postID, "uid": "alice",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteCommentForbiddenForStranger(t *testing.T) {
	router, _ := setupTest(t)
	createUser(t, "alice", "alice")
	createUser(t, "bob", "bob")
	createUser(t, "mallory", "mallory")
	postID := createPost(t, "alice", "a post")
	commentID := createComment(t, postID, "alice", "bob", "stays")

	w := doJSON(t, router, "POST", "/delete-comment", map[string]interface{}{
		"commentId": commentID, "postId": postID, "uid": "mallory",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	var count int64
	database.DB.Model(&models.Comment{}).Where("id = ?", commentID).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestProjectLifecycle(t *testing.T) {
	router, _ := setupTest(t)
	createUser(t, "alice", "alice")

	w := doJSON(t, router, "POST", "/create-project?userId=alice", map[string]interface{}{
		"title":       "devconnect",
		"description": "a social network",
		"tech":        []string{"go", "postgres"},
		"githubUrl":   "https://github.com/alice/devconnect",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Project created successfully", decode(t, w)["message"])

	var project models.Project
	require.NoError(t, database.DB.First(&project, "user_id = ?", "alice").Error)
	assert.Equal(t, "devconnect", project.Title)

	w = doJSON(t, router, "POST", "/edit-project", map[string]interface{}{
		"uid":       "alice",
		"projectId": project.ID,
		"updatedData": map[string]interface{}{
			"title": "devconnect v2", "tech": []string{"go"},
		},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, database.DB.First(&project, "id = ?", project.ID).Error)
	assert.Equal(t, "devconnect v2", project.Title)
	assert.Equal(t, models.StringArray{"go"}, project.Tech)

	// The project shows up in the owner's profile view
	alice := decode(t, doJSON(t, router, "GET", "/get-userData?uid=alice", nil))
	assert.Equal(t, []string{project.ID}, stringSlice(t, alice["projects"]))

	w = doJSON(t, router, "POST", "/delete-project", map[string]interface{}{
		"id": project.ID, "uid": "alice",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var count int64
	database.DB.Model(&models.Project{}).Where("id = ?", project.ID).Count(&count)
	assert.Zero(t, count)
}

func TestProjectOwnerChecks(t *testing.T) {
	router, _ := setupTest(t)
	createUser(t, "alice", "alice")
	createUser(t, "mallory", "mallory")

	w := doJSON(t, router, "POST", "/create-project?userId=ghost", map[string]interface{}{
		"title": "orphan",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	project := models.Project{UserID: "alice", Title: "mine", Tech: models.StringArray{}}
	require.NoError(t, database.DB.Create(&project).Error)

	w = doJSON(t, router, "POST", "/delete-project", map[string]interface{}{
		"id": project.ID, "uid": "mallory",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, router, "POST", "/edit-project", map[string]interface{}{
		"uid": "mallory", "projectId": project.ID,
		"updatedData": map[string]interface{}{"title": "stolen"},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetUsersListing(t *testing.T) {
	router, _ := setupTest(t)
	createUser(t, "alice", "alice")
	createUser(t, "bob", "bob")
	require.NoError(t, database.DB.Create(&models.Follow{FollowerID: "alice", FolloweeID: "bob"}).Error)
	postID := createPost(t, "bob", "hello")

	w := doJSON(t, router, "GET", "/get-users", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var users []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	require.Len(t, users, 2)

	byUID := make(map[string]map[string]interface{})
	for _, u := range users {
		byUID[u["uid"].(string)] = u
	}
	assert.Equal(t, []string{"bob"}, stringSlice(t, byUID["alice"]["following"]))
	assert.Equal(t, []string{"alice"}, stringSlice(t, byUID["bob"]["followers"]))
	assert.Equal(t, []string{postID}, stringSlice(t, byUID["bob"]["posts"]))
	assert.Empty(t, stringSlice(t, byUID["alice"]["posts"]))
}

func TestDeleteUserReferences(t *testing.T) {
	router, _ := setupTest(t)
	createUser(t, "alice", "alice")
	createUser(t, "bob", "bob")
	require.NoError(t, database.DB.Create(&models.Follow{FollowerID: "alice", FolloweeID: "bob"}).Error)
	require.NoError(t, database.DB.Create(&models.Follow{FollowerID: "bob", FolloweeID: "alice"}).Error)
	alicePost := createPost(t, "alice", "mine")
	bobPost := createPost(t, "bob", "theirs")
	createComment(t, bobPost, "bob", "alice", "alice was here")
	require.NoError(t, database.DB.Create(&models.PostLike{PostID: bobPost, UserID: "alice"}).Error)
	require.NoError(t, database.DB.Model(&models.Post{}).Where("id = ?", bobPost).
		UpdateColumn("like_count", 1).Error)

	w := doJSON(t, router, "POST", "/delete-user-references", map[string]interface{}{
		"uid": "alice",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "User references deleted successfully", body["message"])
	removed := body["removed"].(map[string]interface{})
	assert.EqualValues(t, 2, removed["follows"])
	assert.EqualValues(t, 1, removed["postLikes"])
	assert.EqualValues(t, 1, removed["comments"])
	assert.EqualValues(t, 1, removed["posts"])

	var count int64
	database.DB.Unscoped().Model(&models.User{}).Where("id = ?", "alice").Count(&count)
	assert.Zero(t, count)
	database.DB.Unscoped().Model(&models.Post{}).Where("id = ?", alicePost).Count(&count)
	assert.Zero(t, count)

	// Bob's post survives with its counters rolled back
	var post models.Post
	require.NoError(t, database.DB.First(&post, "id = ?", bobPost).Error)
	assert.Zero(t, post.LikeCount)
	assert.Zero(t, post.CommentCount)
}

func TestUploadProfile(t *testing.T) {
	router, uploader := setupTest(t)
	createUser(t, "alice", "alice")

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("userId", "alice"))
	part, err := form.CreateFormFile("image", "avatar.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("not a real png"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req, err := http.NewRequest("POST", "/upload-profile", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", form.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Image uploaded successfully", body["message"])
	assert.Equal(t, "profiles/profile_alice", body["public_id"])
	assert.Contains(t, body["url"], "profiles/profile_alice.png")
	assert.Equal(t, []string{"profiles/profile_alice.png"}, uploader.uploaded)
}

func TestUploadProfileWithoutStorage(t *testing.T) {
	setupTestDB(t)
	gin.SetMode(gin.TestMode)
	h := NewHandlers(nil, nil)
	router := gin.New()
	router.POST("/upload-profile", h.UploadProfile)

	req, err := http.NewRequest("POST", "/upload-profile", nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestDeleteProfileNormalizesPublicID(t *testing.T) {
	router, uploader := setupTest(t)

	// A bare uid gets the stable profile prefix
	w := doJSON(t, router, "POST", "/delete-profile", map[string]interface{}{
		"public_id": "alice",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// A full public id passes through untouched
	w = doJSON(t, router, "POST", "/delete-profile", map[string]interface{}{
		"public_id": "profiles/profile_bob",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []string{"profiles/profile_alice", "profiles/profile_bob"}, uploader.deleted)
}

func TestDeletePostImageNormalizesPublicID(t *testing.T) {
	router, uploader := setupTest(t)

	w := doJSON(t, router, "POST", "/delete-post-image", map[string]interface{}{
		"public_id": "image_alice_123_456",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"posts/image_alice_123_456"}, uploader.deleted)
}

func TestPublicIDsFromURLs(t *testing.T) {
	urls := []string{
		"https://bucket.s3.us-east-1.amazonaws.com/posts/image_alice_1700000000000_42.png",
		"https://cdn.example.com/posts/image_bob_1700000000001_7.jpeg",
		"https://example.com/profiles/profile_alice.png",
		"not a url",
	}
	assert.Equal(t, []string{
		"posts/image_alice_1700000000000_42",
		"posts/image_bob_1700000000001_7",
	}, publicIDsFromURLs(urls))
}
