package http

import (
	"github.com/orgboard/portal-backend/internal/portal/domain"
)

type createProjectReq struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	OwnerID     string `json:"owner_id" binding:"required"`
}

func fieldsFromCreate(req createProjectReq) domain.ProjectFields {
	return domain.ProjectFields{
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		OwnerID:     req.OwnerID,
	}
}

type editProjectReq struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"`
}

type addMemberReq struct {
	UserID string `json:"user_id" binding:"required"`
}

type transferOwnerReq struct {
	UserID string `json:"user_id" binding:"required"`
}

// projectDetail is what the detail/modal view renders: the project as the
// store knows it (counts included), the roster, and the selection state.
type projectDetail struct {
	Project domain.Project      `json:"project"`
	Roster  []domain.Membership `json:"roster"`
	State   string              `json:"state"`
}
