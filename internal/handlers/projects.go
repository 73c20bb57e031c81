package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/devconnect/backend/internal/cache"
	"github.com/devconnect/backend/internal/database"
	"github.com/devconnect/backend/internal/models"
	"github.com/devconnect/backend/internal/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CreateProject stores a showcase project. The owner comes in the query
// string, matching the original client.
// POST /create-project?userId=
func (h *Handlers) CreateProject(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		util.RespondBadRequest(c, "userId query parameter is required")
		return
	}

	var req struct {
		Title       string   `json:"title" binding:"required"`
		Description string   `json:"description"`
		Tech        []string `json:"tech"`
		GithubURL   string   `json:"githubUrl"`
		DemoURL     string   `json:"demoUrl"`
		Image       string   `json:"image"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	var owner models.User
	if err := database.DB.First(&owner, "id = ?", userID).Error; err != nil {
		util.RespondNotFound(c, "user")
		return
	}

	project := models.Project{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Tech:        models.StringArray(req.Tech),
		GithubURL:   req.GithubURL,
		DemoURL:     req.DemoURL,
		Image:       req.Image,
	}
	if project.Tech == nil {
		project.Tech = models.StringArray{}
	}

	if err := database.DB.Create(&project).Error; err != nil {
		util.RespondInternalError(c, "Failed to create project")
		return
	}

	h.listing.Invalidate(c.Request.Context(), cache.KeyProjects, cache.KeyUsers)
	util.RespondMessage(c, "Project created successfully")
}

// GetProjects returns every project across all owners
// GET /get-projects
func (h *Handlers) GetProjects(c *gin.Context) {
	if body, ok := h.listing.Lookup(c.Request.Context(), cache.KeyProjects); ok {
		c.Data(http.StatusOK, "application/json", []byte(body))
		return
	}

	var projects []models.Project
	if err := database.DB.Order("created_at ASC").Find(&projects).Error; err != nil {
		util.RespondInternalError(c, "Failed to load projects")
		return
	}
	for i := range projects {
		if projects[i].Tech == nil {
			projects[i].Tech = models.StringArray{}
		}
	}

	body, err := json.Marshal(projects)
	if err != nil {
		util.RespondInternalError(c, "Failed to encode projects")
		return
	}
	h.listing.Store(c.Request.Context(), cache.KeyProjects, body)
	c.Data(http.StatusOK, "application/json", body)
}

// DeleteProject removes a project owned by uid
// POST /delete-project
func (h *Handlers) DeleteProject(c *gin.Context) {
	var req struct {
		ID  string `json:"id" binding:"required"`
		UID string `json:"uid" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	var project models.Project
	if err := database.DB.First(&project, "id = ?", req.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.RespondNotFound(c, "project")
			return
		}
		util.RespondInternalError(c, "Failed to load project")
		return
	}
	if project.UserID != req.UID {
		util.RespondForbidden(c, "only the owner can delete a project")
		return
	}

	if err := database.DB.Delete(&project).Error; err != nil {
		util.RespondInternalError(c, "Failed to delete project")
		return
	}

	h.listing.Invalidate(c.Request.Context(), cache.KeyProjects, cache.KeyUsers)
	util.RespondMessage(c, "Project deleted successfully")
}

// EditProject updates a project's fields
// POST /edit-project
func (h *Handlers) EditProject(c *gin.Context) {
	var req struct {
		UID         string `json:"uid" binding:"required"`
		ProjectID   string `json:"projectId" binding:"required"`
		UpdatedData struct {
			Title       string   `json:"title"`
			Description string   `json:"description"`
			Tech        []string `json:"tech"`
			GithubURL   string   `json:"githubUrl"`
			DemoURL     string   `json:"demoUrl"`
			Image       string   `json:"image"`
		} `json:"updatedData" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	var project models.Project
	if err := database.DB.First(&project, "id = ?", req.ProjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.RespondNotFound(c, "project")
			return
		}
		util.RespondInternalError(c, "Failed to load project")
		return
	}
	if project.UserID != req.UID {
		util.RespondForbidden(c, "only the owner can edit a project")
		return
	}

	tech := models.StringArray(req.UpdatedData.Tech)
	if tech == nil {
		tech = models.StringArray{}
	}
	updates := map[string]interface{}{
		"title":       req.UpdatedData.Title,
		"description": req.UpdatedData.Description,
		"tech":        tech,
		"github_url":  req.UpdatedData.GithubURL,
		"demo_url":    req.UpdatedData.DemoURL,
		"image":       req.UpdatedData.Image,
	}
	if err := database.DB.Model(&project).Updates(updates).Error; err != nil {
		util.RespondInternalError(c, "Failed to update project")
		return
	}

	h.listing.Invalidate(c.Request.Context(), cache.KeyProjects)
	util.RespondMessage(c, "Project updated successfully")
}
