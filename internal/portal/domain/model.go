// Package domain holds the portal-side view of the registry's entities.
// Field names are unified here once; every screen reads these structs and
// nothing downstream re-maps registry JSON.
package domain

import "time"

// Project is the unit of organizational work members can join.
// MemberCount mirrors the registry's membership count as of the last
// reconciliation; only the membership store may change it.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	OwnerID     string    `json:"owner_id"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProjectFields is the full replacement payload for create/update. The
// registry treats updates as total replaces, so callers must send the
// merged object, never a partial one.
type ProjectFields struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	OwnerID     string `json:"owner_id"`
}

// User comes from the read-only directory.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

// Membership joins a user to a project. Rows are never edited in place:
// they are created by add-member and destroyed by remove-member, with the
// owner flag moving only through the explicit owner-transfer operation.
type Membership struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id"`
	IsOwner   bool      `json:"is_owner"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}
