package handlers

import (
	"net/http"
	"strings"

	"github.com/devconnect/backend/internal/logger"
	"github.com/devconnect/backend/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UploadProfile stores a profile picture under the user's stable key.
// Re-uploading replaces the previous image.
// POST /upload-profile  (multipart: image, userId)
func (h *Handlers) UploadProfile(c *gin.Context) {
	if h.uploads == nil {
		util.RespondInternalError(c, "Image storage is not configured")
		return
	}

	userID := c.PostForm("userId")
	if userID == "" {
		util.RespondBadRequest(c, "userId is required")
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		util.RespondBadRequest(c, "image file is required")
		return
	}
	defer file.Close()

	result, err := h.uploads.UploadProfileImage(c.Request.Context(), file, header, userID)
	if err != nil {
		logger.Log.Error("profile image upload failed",
			logger.WithUserID(userID),
			zap.Error(err),
		)
		util.RespondInternalError(c, "Upload failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":       result.URL,
		"public_id": result.PublicID(),
		"message":   "Image uploaded successfully",
	})
}

// DeleteProfile removes a hosted profile picture. The original clients send
// either the full public id or just the uid; both are accepted.
// POST /delete-profile
func (h *Handlers) DeleteProfile(c *gin.Context) {
	if h.uploads == nil {
		util.RespondInternalError(c, "Image storage is not configured")
		return
	}

	var req struct {
		PublicID string `json:"public_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	publicID := strings.TrimSpace(req.PublicID)
	if !strings.HasPrefix(publicID, "profiles/") {
		publicID = "profiles/profile_" + publicID
	}

	if err := h.uploads.DeleteByPublicID(c.Request.Context(), publicID); err != nil {
		logger.Log.Error("profile image delete failed",
			zap.String("publicId", publicID),
			zap.Error(err),
		)
		util.RespondInternalError(c, "Delete failed")
		return
	}

	util.RespondMessage(c, "Image deleted successfully")
}

// UploadPostImage stores one or more post images and returns their hosted
// URLs and public ids
// POST /upload-post-image  (multipart: images[], userId)
func (h *Handlers) UploadPostImage(c *gin.Context) {
	if h.uploads == nil {
		util.RespondInternalError(c, "Image storage is not configured")
		return
	}

	userID := c.PostForm("userId")
	if userID == "" {
		util.RespondBadRequest(c, "userId is required")
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		util.RespondBadRequest(c, "multipart form is required")
		return
	}
	files := form.File["images"]
	if len(files) == 0 {
		util.RespondBadRequest(c, "at least one image is required")
		return
	}

	type uploadEntry struct {
		URL      string `json:"url"`
		PublicID string `json:"public_id"`
	}
	uploads := make([]uploadEntry, 0, len(files))

	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			util.RespondBadRequest(c, "failed to read upload")
			return
		}

		result, err := h.uploads.UploadPostImage(c.Request.Context(), file, header, userID)
		file.Close()
		if err != nil {
			logger.Log.Error("post image upload failed",
				logger.WithUserID(userID),
				zap.Error(err),
			)
			util.RespondInternalError(c, "Upload failed")
			return
		}

		uploads = append(uploads, uploadEntry{
			URL:      result.URL,
			PublicID: result.PublicID(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"uploads": uploads,
		"message": "Image uploaded successfully",
	})
}

// DeletePostImage removes one hosted post image by public id
// POST /delete-post-image
func (h *Handlers) DeletePostImage(c *gin.Context) {
	if h.uploads == nil {
		util.RespondInternalError(c, "Image storage is not configured")
		return
	}

	var req struct {
		PublicID string `json:"public_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	publicID := strings.TrimSpace(req.PublicID)
	if !strings.HasPrefix(publicID, "posts/") {
		publicID = "posts/" + publicID
	}

	if err := h.uploads.DeleteByPublicID(c.Request.Context(), publicID); err != nil {
		logger.Log.Error("post image delete failed",
			zap.String("publicId", publicID),
			zap.Error(err),
		)
		util.RespondInternalError(c, "Delete failed")
		return
	}

	util.RespondMessage(c, "Image deleted successfully")
}
