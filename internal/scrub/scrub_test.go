package scrub

import (
	"context"
	"fmt"
	"testing"

	"github.com/devconnect/backend/internal/database"
	"github.com/devconnect/backend/internal/models"
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
		&models.Post{},
		&models.Comment{},
		&models.Project{},
		&models.Follow{},
		&models.PostLike{},
		&models.CommentLike{},
	))

	database.DB = db
}

// seedGraph builds a small world around the departing user:
// departing follows other and is followed back, liked other's post and
// comment, commented on other's post, and owns one post (liked and
// commented on by other) plus a project.
func seedGraph(t *testing.T, departing, other string) (ownPostID string) {
	db := database.DB

	for _, uid := range []string{departing, other} {
		require.NoError(t, db.Create(&models.User{ID: uid, Username: uid}).Error)
	}

	require.NoError(t, db.Create(&models.Follow{FollowerID: departing, FolloweeID: other}).Error)
	require.NoError(t, db.Create(&models.Follow{FollowerID: other, FolloweeID: departing}).Error)

	otherPost := models.Post{UserID: other, Content: "other's post"}
	require.NoError(t, db.Create(&otherPost).Error)
	ownPost := models.Post{UserID: departing, Content: "own post"}
	require.NoError(t, db.Create(&ownPost).Error)

	// departing likes other's post
	require.NoError(t, db.Create(&models.PostLike{PostID: otherPost.ID, UserID: departing}).Error)
	require.NoError(t, db.Model(&otherPost).UpdateColumn("like_count", 1).Error)
	// other likes departing's post
	require.NoError(t, db.Create(&models.PostLike{PostID: ownPost.ID, UserID: other}).Error)
	require.NoError(t, db.Model(&ownPost).UpdateColumn("like_count", 1).Error)

	// departing comments on other's post
	authored := models.Comment{PostID: otherPost.ID, PostOwnerID: other, AuthorID: departing, Content: "hi"}
	require.NoError(t, db.Create(&authored).Error)
	// other comments on departing's post
	received := models.Comment{PostID: ownPost.ID, PostOwnerID: departing, AuthorID: other, Content: "hello"}
	require.NoError(t, db.Create(&received).Error)
	require.NoError(t, db.Model(&models.Post{}).Where("id IN ?", []string{otherPost.ID, ownPost.ID}).
		UpdateColumn("comment_count", 1).Error)

	// departing likes other's comment
	require.NoError(t, db.Create(&models.CommentLike{CommentID: received.ID, UserID: departing}).Error)
	require.NoError(t, db.Model(&received).UpdateColumn("like_count", 1).Error)

	require.NoError(t, db.Create(&models.Project{UserID: departing, Title: "tool"}).Error)

	return ownPost.ID
}

func TestScrubRemovesEveryReference(t *testing.T) {
	setupTestDB(t)
	seedGraph(t, "departing", "other")

	report, err := NewScrubber().Run(context.Background(), "departing")
	require.NoError(t, err)

	assert.Equal(t, int64(2), report.Follows)
	assert.Equal(t, int64(1), report.PostLikes)
	assert.Equal(t, int64(1), report.CommentLikes)
	assert.Equal(t, int64(1), report.Comments)
	assert.Equal(t, int64(1), report.Posts)
	assert.Equal(t, int64(1), report.Projects)
	assert.Equal(t, int64(1), report.Profile)

	db := database.DB
	var count int64

	require.NoError(t, db.Model(&models.Follow{}).
		Where("follower_id = ? OR followee_id = ?", "departing", "departing").Count(&count).Error)
	assert.Zero(t, count)

	require.NoError(t, db.Model(&models.PostLike{}).Where("user_id = ?", "departing").Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&models.CommentLike{}).Where("user_id = ?", "departing").Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&models.Comment{}).Where("author_id = ?", "departing").Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&models.Post{}).Where("user_id = ?", "departing").Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&models.Project{}).Where("user_id = ?", "departing").Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", "departing").Count(&count).Error)
	assert.Zero(t, count)

	// The other user's world survives with corrected counters
	var otherPost models.Post
	require.NoError(t, db.First(&otherPost, "user_id = ?", "other").Error)
	assert.Equal(t, 0, otherPost.LikeCount)
	assert.Equal(t, 0, otherPost.CommentCount)
}

func TestScrubConvergesUnderRetry(t *testing.T) {
	setupTestDB(t)
	seedGraph(t, "departing", "other")

	_, err := NewScrubber().Run(context.Background(), "departing")
	require.NoError(t, err)

	// A second run finds nothing left to remove
	report, err := NewScrubber().Run(context.Background(), "departing")
	require.NoError(t, err)
	assert.Equal(t, &Report{}, report)
}

func TestScrubBatchesLargeSets(t *testing.T) {
	setupTestDB(t)

	require.NoError(t, database.DB.Create(&models.User{ID: "hoarder", Username: "hoarder"}).Error)
	require.NoError(t, database.DB.Create(&models.User{ID: "other", Username: "other"}).Error)
	post := models.Post{UserID: "other"}
	require.NoError(t, database.DB.Create(&post).Error)

	s := NewScrubber()
	s.batchSize = 3

	// More authored comments than one batch holds
	for i := 0; i < 10; i++ {
		c := models.Comment{PostID: post.ID, PostOwnerID: "other", AuthorID: "hoarder", Content: "x"}
		require.NoError(t, database.DB.Create(&c).Error)
	}
	require.NoError(t, database.DB.Model(&post).UpdateColumn("comment_count", 10).Error)

	report, err := s.Run(context.Background(), "hoarder")
	require.NoError(t, err)
	assert.Equal(t, int64(10), report.Comments)

	var updated models.Post
	require.NoError(t, database.DB.First(&updated, "id = ?", post.ID).Error)
	assert.Equal(t, 0, updated.CommentCount)
}
