package handlers

import (
	"errors"
	"net/http"

	"github.com/devconnect/backend/internal/cache"
	"github.com/devconnect/backend/internal/database"
	"github.com/devconnect/backend/internal/metrics"
	"github.com/devconnect/backend/internal/models"
	"github.com/devconnect/backend/internal/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetComments returns a post's comments, oldest first, with derived likes
// arrays. The optional userId parameter is the post owner's ref the client
// holds for path addressing; when given it must match the stored post.
// GET /get-comments?postId=&userId=
func (h *Handlers) GetComments(c *gin.Context) {
	postID := c.Query("postId")
	if postID == "" {
		util.RespondBadRequest(c, "postId query parameter is required")
		return
	}

	var post models.Post
	if err := database.DB.First(&post, "id = ?", postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.RespondNotFound(c, "post")
			return
		}
		util.RespondInternalError(c, "Failed to load post")
		return
	}
	if ownerID := c.Query("userId"); ownerID != "" && ownerID != post.UserID {
		util.RespondNotFound(c, "post")
		return
	}

	var comments []models.Comment
	if err := database.DB.Where("post_id = ?", postID).
		Order("created_at ASC").Find(&comments).Error; err != nil {
		util.RespondInternalError(c, "Failed to load comments")
		return
	}

	views, err := buildCommentViews(database.DB, comments)
	if err != nil {
		util.RespondInternalError(c, "Failed to load comments")
		return
	}
	c.JSON(http.StatusOK, views)
}

// LikeComment toggles a like on a comment, same semantics as LikePost:
// client snapshot picks the direction, the set operation is idempotent
// POST /like-comment
func (h *Handlers) LikeComment(c *gin.Context) {
	var req struct {
		CommentID string `json:"commentId" binding:"required"`
		PostID    string `json:"postId"`
		UserID    string `json:"userId" binding:"required"`
		Liked     bool   `json:"liked"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		query := tx.Where("id = ?", req.CommentID)
		if req.PostID != "" {
			query = query.Where("post_id = ?", req.PostID)
		}
		if err := query.First(&comment).Error; err != nil {
			return err
		}

		if req.Liked {
			res := tx.Where("comment_id = ? AND user_id = ?", req.CommentID, req.UserID).
				Delete(&models.CommentLike{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				return tx.Model(&models.Comment{}).Where("id = ?", req.CommentID).
					UpdateColumn("like_count", gorm.Expr("like_count - ?", res.RowsAffected)).Error
			}
			return nil
		}

		var existing int64
		if err := tx.Model(&models.CommentLike{}).
			Where("comment_id = ? AND user_id = ?", req.CommentID, req.UserID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}
		like := models.CommentLike{CommentID: req.CommentID, UserID: req.UserID}
		if err := tx.Create(&like).Error; err != nil {
			return err
		}
		return tx.Model(&models.Comment{}).Where("id = ?", req.CommentID).
			UpdateColumn("like_count", gorm.Expr("like_count + 1")).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.RespondNotFound(c, "comment")
			return
		}
		util.RespondInternalError(c, "Failed to update likes")
		return
	}

	if req.Liked {
		metrics.Get().GraphMutationsTotal.WithLabelValues("unlike_comment").Inc()
		util.RespondMessage(c, "Comment unliked successfully")
	} else {
		metrics.Get().GraphMutationsTotal.WithLabelValues("like_comment").Inc()
		util.RespondMessage(c, "Comment liked successfully")
	}
}

// DeleteComment removes a comment and its likes, and moves the parent
// post's comment_count down by the row actually deleted, all in one
// transaction
// POST /delete-comment
func (h *Handlers) DeleteComment(c *gin.Context) {
	var req struct {
		CommentID string `json:"commentId" binding:"required"`
		PostID    string `json:"postId" binding:"required"`
		UID       string `json:"uid"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.Where("id = ? AND post_id = ?", req.CommentID, req.PostID).
			First(&comment).Error; err != nil {
			return err
		}
		// Either the comment's author or the post owner may delete it
		if req.UID != "" && comment.AuthorID != req.UID && comment.PostOwnerID != req.UID {
			return errOwnerMismatch
		}

		if err := tx.Where("comment_id = ?", req.CommentID).
			Delete(&models.CommentLike{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&comment)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return tx.Model(&models.Post{}).Where("id = ?", req.PostID).
				UpdateColumn("comment_count", gorm.Expr("comment_count - ?", res.RowsAffected)).Error
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.RespondNotFound(c, "comment")
			return
		}
		if errors.Is(err, errOwnerMismatch) {
			util.RespondForbidden(c, "only the author or post owner can delete a comment")
			return
		}
		util.RespondInternalError(c, "Failed to delete comment")
		return
	}

	h.listing.Invalidate(c.Request.Context(), cache.KeyPosts)
	metrics.Get().GraphMutationsTotal.WithLabelValues("delete_comment").Inc()
	util.RespondMessage(c, "Comment deleted successfully")
}
