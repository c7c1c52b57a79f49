package members

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	repo *Repo
}

func Register(rg *gin.RouterGroup, repo *Repo) {
	h := &Handler{repo: repo}

	rg.GET("/by-project/:id", h.listByProject)
	rg.POST("", h.add)
	rg.DELETE("/:id", h.remove)
}

func (h *Handler) listByProject(c *gin.Context) {
	items, err := h.repo.ListByProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "members": items})
}

type addReq struct {
	ProjectID string `json:"project_id"`
	UserID    string `json:"user_id"`
}

func (h *Handler) add(c *gin.Context) {
	var req addReq
	if err := c.ShouldBindJSON(&req); err != nil || req.ProjectID == "" || req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	m, err := h.repo.Add(c.Request.Context(), req.ProjectID, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, ErrProjectNotFound):
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
		case errors.Is(err, ErrDuplicate):
			c.JSON(http.StatusConflict, gin.H{"ok": false, "error": "user is already a member"})
		case errors.Is(err, ErrUnknownUser):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"ok": false, "error": "user does not exist"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "membership": m})
}

func (h *Handler) remove(c *gin.Context) {
	err := h.repo.Remove(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "membership not found"})
		case errors.Is(err, ErrOwnerMembership):
			c.JSON(http.StatusConflict, gin.H{"ok": false, "error": "owner membership cannot be removed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
