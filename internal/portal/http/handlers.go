// Package http holds the portal's presentation adapters. Handlers here
// are render-only: they forward intents to the coordinator and then read
// whatever the store ended up with. No handler keeps its own roster or
// recomputes a member count.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orgboard/portal-backend/internal/apperr"
	"github.com/orgboard/portal-backend/internal/portal/coordinator"
	"github.com/orgboard/portal-backend/internal/portal/store"
)

type Handler struct {
	coord *coordinator.Coordinator
	store *store.Store
}

func Register(rg *gin.RouterGroup, coord *coordinator.Coordinator, st *store.Store) {
	h := &Handler{coord: coord, store: st}

	rg.GET("/projects", h.listProjects)
	rg.POST("/projects", h.createProject)
	rg.GET("/projects/:id", h.projectDetail)
	rg.PUT("/projects/:id", h.editProject)
	rg.DELETE("/projects/:id", h.deleteProject)
	rg.POST("/projects/:id/members", h.addMember)
	rg.POST("/projects/:id/owner", h.transferOwner)
	rg.GET("/projects/:id/available-users", h.availableUsers)
	rg.DELETE("/members/:id", h.removeMember)
}

func (h *Handler) listProjects(c *gin.Context) {
	if err := h.coord.Refresh(c.Request.Context()); err != nil {
		// The store kept its previous set; render it alongside the error
		// so the list stays stale-but-consistent instead of blank.
		c.JSON(apperr.HTTPStatus(err), gin.H{
			"ok":       false,
			"error":    err.Error(),
			"projects": h.store.Projects(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "projects": h.store.Projects()})
}

func (h *Handler) createProject(c *gin.Context) {
	var req createProjectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	p, err := h.coord.CreateProject(c.Request.Context(), fieldsFromCreate(req))
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "project": p})
}

func (h *Handler) projectDetail(c *gin.Context) {
	projectID := c.Param("id")

	err := h.coord.Select(c.Request.Context(), projectID)
	state, _ := h.coord.State()

	project, ok := h.store.Project(projectID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
		return
	}
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"ok": false, "error": err.Error(), "state": state.String()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "detail": projectDetail{
		Project: project,
		Roster:  h.store.Roster(),
		State:   state.String(),
	}})
}

func (h *Handler) editProject(c *gin.Context) {
	projectID := c.Param("id")

	var req editProjectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	p, err := h.coord.EditProject(c.Request.Context(), projectID, coordinator.EditChanges{
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) deleteProject(c *gin.Context) {
	projectID := c.Param("id")
	confirmed := c.Query("confirm") == "true"

	err := h.coord.DeleteProject(c.Request.Context(), projectID, confirmed)
	if err != nil && !apperr.IsNotFound(err) {
		c.JSON(apperr.HTTPStatus(err), gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) addMember(c *gin.Context) {
	projectID := c.Param("id")

	var req addMemberReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	m, err := h.coord.AddMember(c.Request.Context(), projectID, req.UserID)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"ok": false, "error": err.Error()})
		return
	}

	project, _ := h.store.Project(projectID)
	c.JSON(http.StatusCreated, gin.H{
		"ok":         true,
		"membership": m,
		"project":    project,
		"roster":     h.store.Roster(),
	})
}

func (h *Handler) removeMember(c *gin.Context) {
	membershipID := c.Param("id")

	if err := h.coord.RemoveMember(c.Request.Context(), membershipID); err != nil && !apperr.IsNotFound(err) {
		c.JSON(apperr.HTTPStatus(err), gin.H{"ok": false, "error": err.Error()})
		return
	}

	projectID := h.store.SelectedProjectID()
	project, _ := h.store.Project(projectID)
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"project": project,
		"roster":  h.store.Roster(),
	})
}

func (h *Handler) transferOwner(c *gin.Context) {
	projectID := c.Param("id")

	var req transferOwnerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	p, err := h.coord.TransferOwner(c.Request.Context(), projectID, req.UserID)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p, "roster": h.store.Roster()})
}

func (h *Handler) availableUsers(c *gin.Context) {
	projectID := c.Param("id")

	users, err := h.coord.AvailableUsers(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(apperr.HTTPStatus(err), gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "users": users})
}
