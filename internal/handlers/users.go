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

// CreateUser writes the initial profile document at signup. The identity
// provider has already issued the uid; we only store the profile.
// POST /create-user
func (h *Handlers) CreateUser(c *gin.Context) {
	var req models.User
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	if req.ID == "" {
		util.RespondValidationError(c, "uid", "uid is required")
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		util.RespondValidationError(c, "username", "username is required")
		return
	}
	req.Username = models.NormalizeUsername(req.Username)

	var existing models.User
	err := database.DB.Where("id = ? OR LOWER(username) = ?", req.ID, req.Username).First(&existing).Error
	if err == nil {
		util.RespondConflict(c, "user")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		util.RespondInternalError(c, "Failed to check existing users")
		return
	}

	if req.Skills == nil {
		req.Skills = models.StringArray{}
	}
	if err := database.DB.Create(&req).Error; err != nil {
		util.RespondInternalError(c, "Failed to create user")
		return
	}

	h.listing.Invalidate(c.Request.Context(), cache.KeyUsers)
	logger.Log.Info("user created", logger.WithUserID(req.ID), zap.String("username", req.Username))
	c.JSON(http.StatusCreated, gin.H{"message": "User created successfully"})
}

// GetUsers returns every profile with its derived relationship arrays
// GET /get-users
func (h *Handlers) GetUsers(c *gin.Context) {
	if body, ok := h.listing.Lookup(c.Request.Context(), cache.KeyUsers); ok {
		c.Data(http.StatusOK, "application/json", []byte(body))
		return
	}

	var users []models.User
	if err := database.DB.Order("created_at ASC").Find(&users).Error; err != nil {
		util.RespondInternalError(c, "Failed to load users")
		return
	}

	views, err := buildUserViews(database.DB, users)
	if err != nil {
		util.RespondInternalError(c, "Failed to load users")
		return
	}

	body, err := json.Marshal(views)
	if err != nil {
		util.RespondInternalError(c, "Failed to encode users")
		return
	}
	h.listing.Store(c.Request.Context(), cache.KeyUsers, body)
	c.Data(http.StatusOK, "application/json", body)
}

// GetUserData returns one profile, or an empty object when the uid is
// unknown (the original contract: clients probe profiles this way)
// GET /get-userData?uid=
func (h *Handlers) GetUserData(c *gin.Context) {
	uid := c.Query("uid")
	if uid == "" {
		util.RespondBadRequest(c, "uid query parameter is required")
		return
	}

	var user models.User
	if err := database.DB.First(&user, "id = ?", uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, gin.H{})
			return
		}
		util.RespondInternalError(c, "Failed to load user")
		return
	}

	view, err := buildUserView(database.DB, user)
	if err != nil {
		util.RespondInternalError(c, "Failed to load user")
		return
	}
	c.JSON(http.StatusOK, view)
}

// updatableUserFields is the write boundary for profile edits: anything else
// in the payload is dropped.
var updatableUserFields = map[string]bool{
	"username": true, "firstName": true, "lastName": true, "email": true,
	"bio": true, "location": true, "jobTitle": true, "company": true,
	"experience": true, "githubUrl": true, "linkedinUrl": true,
	"portfolioUrl": true, "profilePicture": true, "skills": true,
}

var userColumnNames = map[string]string{
	"username": "username", "firstName": "first_name", "lastName": "last_name",
	"email": "email", "bio": "bio", "location": "location",
	"jobTitle": "job_title", "company": "company", "experience": "experience",
	"githubUrl": "github_url", "linkedinUrl": "linkedin_url",
	"portfolioUrl": "portfolio_url", "profilePicture": "profile_picture",
	"skills": "skills",
}

// UpdateUserData applies a partial profile edit
// POST /update-userData?uid=
func (h *Handlers) UpdateUserData(c *gin.Context) {
	uid := c.Query("uid")
	if uid == "" {
		util.RespondBadRequest(c, "uid query parameter is required")
		return
	}

	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	updates := make(map[string]interface{})
	for field, value := range payload {
		if !updatableUserFields[field] {
			continue
		}
		column := userColumnNames[field]
		if field == "skills" {
			items, ok := toStringArray(value)
			if !ok {
				util.RespondValidationError(c, "skills", "skills must be an array of strings")
				return
			}
			updates[column] = items
			continue
		}
		str, ok := value.(string)
		if !ok {
			util.RespondValidationError(c, field, "must be a string")
			return
		}
		if field == "username" {
			str = models.NormalizeUsername(str)
			if str == "" {
				util.RespondValidationError(c, "username", "username is required")
				return
			}
		}
		updates[column] = str
	}

	if len(updates) == 0 {
		util.RespondBadRequest(c, "no updatable fields in payload")
		return
	}

	result := database.DB.Model(&models.User{}).Where("id = ?", uid).Updates(updates)
	if result.Error != nil {
		util.RespondInternalError(c, "Failed to update user")
		return
	}
	if result.RowsAffected == 0 {
		util.RespondNotFound(c, "user")
		return
	}

	h.listing.Invalidate(c.Request.Context(), cache.KeyUsers)
	util.RespondMessage(c, "Data updated successfully")
}

// Follow toggles the follow edge between two profiles. The stored edge is a
// single row, so the followers and following arrays can never disagree. The
// client's `following` snapshot only picks the direction; the actual add or
// remove is idempotent regardless of how stale that snapshot is.
// POST /follow
func (h *Handlers) Follow(c *gin.Context) {
	var req struct {
		TargetUID   string `json:"targetUid" binding:"required"`
		FollowerUID string `json:"followerUid" binding:"required"`
		Following   bool   `json:"following"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	if req.TargetUID == req.FollowerUID {
		util.RespondBadRequest(c, "cannot follow yourself")
		return
	}

	// Both profiles must exist before an edge is written
	var count int64
	if err := database.DB.Model(&models.User{}).
		Where("id IN ?", []string{req.TargetUID, req.FollowerUID}).
		Count(&count).Error; err != nil {
		util.RespondInternalError(c, "Failed to load users")
		return
	}
	if count != 2 {
		util.RespondNotFound(c, "user")
		return
	}

	if req.Following {
		// Already following per the client snapshot: unfollow
		if err := database.DB.
			Where("follower_id = ? AND followee_id = ?", req.FollowerUID, req.TargetUID).
			Delete(&models.Follow{}).Error; err != nil {
			util.RespondInternalError(c, "Failed to unfollow")
			return
		}
		metrics.Get().GraphMutationsTotal.WithLabelValues("unfollow").Inc()
		h.listing.Invalidate(c.Request.Context(), cache.KeyUsers)
		util.RespondMessage(c, "Unfollowed")
		return
	}

	edge := models.Follow{FollowerID: req.FollowerUID, FolloweeID: req.TargetUID}
	err := database.DB.
		Where("follower_id = ? AND followee_id = ?", req.FollowerUID, req.TargetUID).
		FirstOrCreate(&edge).Error
	if err != nil {
		util.RespondInternalError(c, "Failed to follow")
		return
	}

	metrics.Get().GraphMutationsTotal.WithLabelValues("follow").Inc()
	h.listing.Invalidate(c.Request.Context(), cache.KeyUsers)
	util.RespondMessage(c, "Followed")
}

// DeleteUserReferences runs the account-deletion scrub for a departing uid.
// The scrub is batched and has no rollback; re-running it finds fewer
// references each time, so a failed run is retried by resubmitting.
// POST /delete-user-references
func (h *Handlers) DeleteUserReferences(c *gin.Context) {
	var req struct {
		UID string `json:"uid" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	report, err := h.scrubber.Run(c.Request.Context(), req.UID)
	if err != nil {
		logger.Log.Error("account scrub failed",
			logger.WithUserID(req.UID),
			zap.Error(err),
		)
		util.RespondInternalError(c, "Scrub failed; resubmit to continue")
		return
	}

	h.listing.Invalidate(c.Request.Context(), cache.KeyUsers, cache.KeyPosts, cache.KeyProjects)
	logger.Log.Info("account scrub finished",
		logger.WithUserID(req.UID),
		zap.Int64("follows", report.Follows),
		zap.Int64("postLikes", report.PostLikes),
		zap.Int64("commentLikes", report.CommentLikes),
		zap.Int64("comments", report.Comments),
		zap.Int64("posts", report.Posts),
		zap.Int64("projects", report.Projects),
	)

	c.JSON(http.StatusOK, gin.H{
		"message": "User references deleted successfully",
		"removed": report,
	})
}

func toStringArray(value interface{}) (models.StringArray, bool) {
	items, ok := value.([]interface{})
	if !ok {
		return nil, false
	}
	out := make(models.StringArray, 0, len(items))
	for _, item := range items {
		str, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, str)
	}
	return out, true
}
