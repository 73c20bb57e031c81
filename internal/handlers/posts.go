package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/devconnect/backend/internal/cache"
	"github.com/devconnect/backend/internal/database"
	"github.com/devconnect/backend/internal/logger"
	"github.com/devconnect/backend/internal/metrics"
	"github.com/devconnect/backend/internal/models"
	"github.com/devconnect/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreatePost stores a new post for its owner
// POST /create-post
func (h *Handlers) CreatePost(c *gin.Context) {
	var req struct {
		UID     string   `json:"uid" binding:"required"`
		Content string   `json:"content"`
		Tags    []string `json:"tags"`
		Images  []string `json:"images"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}
	if strings.TrimSpace(req.Content) == "" && len(req.Images) == 0 {
		util.RespondValidationError(c, "content", "post needs content or images")
		return
	}

	var owner models.User
	if err := database.DB.First(&owner, "id = ?", req.UID).Error; err != nil {
		util.RespondNotFound(c, "user")
		return
	}

	post := models.Post{
		UserID:  req.UID,
		Content: req.Content,
		Tags:    models.StringArray(req.Tags),
		Images:  models.StringArray(req.Images),
	}
	if post.Tags == nil {
		post.Tags = models.StringArray{}
	}
	if post.Images == nil {
		post.Images = models.StringArray{}
	}

	if err := database.DB.Create(&post).Error; err != nil {
		util.RespondInternalError(c, "Failed to create post")
		return
	}

	h.listing.Invalidate(c.Request.Context(), cache.KeyPosts, cache.KeyUsers)
	logger.Log.Info("post created", logger.WithUserID(req.UID), logger.WithPostID(post.ID))
	util.RespondMessage(c, "Post created successfully")
}

// GetPosts returns every post, oldest first, with derived likes and comment
// id arrays
// GET /get-posts
func (h *Handlers) GetPosts(c *gin.Context) {
	if body, ok := h.listing.Lookup(c.Request.Context(), cache.KeyPosts); ok {
		c.Data(http.StatusOK, "application/json", []byte(body))
		return
	}

	var posts []models.Post
	if err := database.DB.Order("created_at ASC").Find(&posts).Error; err != nil {
		util.RespondInternalError(c, "Failed to load posts")
		return
	}

	views, err := buildPostViews(database.DB, posts)
	if err != nil {
		util.RespondInternalError(c, "Failed to load posts")
		return
	}

	body, err := json.Marshal(views)
	if err != nil {
		util.RespondInternalError(c, "Failed to encode posts")
		return
	}
	h.listing.Store(c.Request.Context(), cache.KeyPosts, body)
	c.Data(http.StatusOK, "application/json", body)
}

// LikePost toggles a like on a post. The `liked` field is the client's
// snapshot and only selects the direction; the mutation itself is an
// idempotent set operation, so duplicate or raced requests converge on the
// same membership. The cached like_count moves by exactly the number of
// rows the set operation actually changed.
// POST /like-post
func (h *Handlers) LikePost(c *gin.Context) {
	var req struct {
		PostID      string `json:"postId" binding:"required"`
		UserID      string `json:"userId" binding:"required"`
		PostOwnerID string `json:"postOwnerId"`
		Liked       bool   `json:"liked"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	var likeCount int64
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, "id = ?", req.PostID).Error; err != nil {
			return err
		}

		if req.Liked {
			res := tx.Where("post_id = ? AND user_id = ?", req.PostID, req.UserID).
				Delete(&models.PostLike{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				if err := tx.Model(&models.Post{}).Where("id = ?", req.PostID).
					UpdateColumn("like_count", gorm.Expr("like_count - ?", res.RowsAffected)).Error; err != nil {
					return err
				}
			}
		} else {
			var existing int64
			if err := tx.Model(&models.PostLike{}).
				Where("post_id = ? AND user_id = ?", req.PostID, req.UserID).
				Count(&existing).Error; err != nil {
				return err
			}
			if existing == 0 {
				like := models.PostLike{PostID: req.PostID, UserID: req.UserID}
				if err := tx.Create(&like).Error; err != nil {
					return err
				}
				if err := tx.Model(&models.Post{}).Where("id = ?", req.PostID).
					UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error; err != nil {
					return err
				}
			}
		}

		return tx.Model(&models.PostLike{}).Where("post_id = ?", req.PostID).Count(&likeCount).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.RespondNotFound(c, "post")
			return
		}
		util.RespondInternalError(c, "Failed to update likes")
		return
	}

	if req.Liked {
		metrics.Get().GraphMutationsTotal.WithLabelValues("unlike_post").Inc()
	} else {
		metrics.Get().GraphMutationsTotal.WithLabelValues("like_post").Inc()
	}
	h.listing.Invalidate(c.Request.Context(), cache.KeyPosts)

	if h.wsHandler != nil {
		h.wsHandler.BroadcastLikeCountUpdate(req.PostID, likeCount)
	}

	if req.Liked {
		util.RespondMessage(c, "Post unliked successfully")
	} else {
		util.RespondMessage(c, "Post liked successfully")
	}
}

// EditPost updates a post's content, tags and images
// POST /edit-post
func (h *Handlers) EditPost(c *gin.Context) {
	var req struct {
		DocID       string `json:"docId" binding:"required"`
		UpdatedData struct {
			UID     string   `json:"uid"`
			Content string   `json:"content"`
			Tags    []string `json:"tags"`
			Images  []string `json:"images"`
		} `json:"updatedData" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	var post models.Post
	if err := database.DB.First(&post, "id = ?", req.DocID).Error; err != nil {
		util.RespondNotFound(c, "post")
		return
	}
	if req.UpdatedData.UID != "" && post.UserID != req.UpdatedData.UID {
		util.RespondForbidden(c, "only the owner can edit a post")
		return
	}

	tags := models.StringArray(req.UpdatedData.Tags)
	if tags == nil {
		tags = models.StringArray{}
	}
	updates := map[string]interface{}{
		"content": req.UpdatedData.Content,
		"tags":    tags,
	}
	if req.UpdatedData.Images != nil {
		updates["images"] = models.StringArray(req.UpdatedData.Images)
	}

	if err := database.DB.Model(&post).Updates(updates).Error; err != nil {
		util.RespondInternalError(c, "Failed to update post")
		return
	}

	h.listing.Invalidate(c.Request.Context(), cache.KeyPosts)
	util.RespondMessage(c, "Post updated successfully")
}

// DeletePost removes a post together with its comments and likes in one
// transaction, then best-effort deletes its hosted images
// POST /delete-post
func (h *Handlers) DeletePost(c *gin.Context) {
	var req struct {
		DocID     string   `json:"docId" binding:"required"`
		UID       string   `json:"uid" binding:"required"`
		ImageURLs []string `json:"imageUrls"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, "id = ?", req.DocID).Error; err != nil {
			return err
		}
		if post.UserID != req.UID {
			return errOwnerMismatch
		}

		var commentIDs []string
		if err := tx.Model(&models.Comment{}).Where("post_id = ?", req.DocID).
			Pluck("id", &commentIDs).Error; err != nil {
			return err
		}
		if len(commentIDs) > 0 {
			if err := tx.Where("comment_id IN ?", commentIDs).
				Delete(&models.CommentLike{}).Error; err != nil {
				return err
			}
			if err := tx.Where("post_id = ?", req.DocID).
				Delete(&models.Comment{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("post_id = ?", req.DocID).
			Delete(&models.PostLike{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.RespondNotFound(c, "post")
			return
		}
		if errors.Is(err, errOwnerMismatch) {
			util.RespondForbidden(c, "only the owner can delete a post")
			return
		}
		util.RespondInternalError(c, "Failed to delete post")
		return
	}

	// Hosted images are external state: deletion is best-effort and a
	// failure only leaves an unreferenced object behind
	if h.uploads != nil {
		for _, publicID := range publicIDsFromURLs(req.ImageURLs) {
			if err := h.uploads.DeleteByPublicID(c.Request.Context(), publicID); err != nil {
				logger.Log.Warn("failed to delete post image",
					zap.String("publicId", publicID),
					zap.Error(err),
				)
			}
		}
	}

	h.listing.Invalidate(c.Request.Context(), cache.KeyPosts, cache.KeyUsers)
	util.RespondMessage(c, "Post deleted successfully")
}

var errOwnerMismatch = errors.New("owner mismatch")

// publicIDsFromURLs derives storage public ids from hosted image URLs. The
// key is everything from the "posts/" path segment onward, extension
// stripped.
func publicIDsFromURLs(urls []string) []string {
	var ids []string
	for _, u := range urls {
		idx := strings.Index(u, "posts/image_")
		if idx < 0 {
			continue
		}
		id := u[idx:]
		if dot := strings.LastIndex(id, "."); dot > 0 {
			id = id[:dot]
		}
		ids = append(ids, id)
	}
	return ids
}
