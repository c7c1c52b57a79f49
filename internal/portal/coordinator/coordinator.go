// Package coordinator sequences the multi-step user flows that span more
// than one store operation and tracks the lifecycle of the "selected
// project" concept. Views talk to the coordinator; the coordinator talks
// to the store; only the store applies gateway results.
package coordinator

import (
	"context"
	"sync"

	"github.com/orgboard/portal-backend/internal/apperr"
	"github.com/orgboard/portal-backend/internal/portal/domain"
	"github.com/orgboard/portal-backend/internal/portal/store"
)

// SelectionState describes where the detail view is in its lifecycle.
type SelectionState int

const (
	StateNone SelectionState = iota
	StateLoading
	StateReady
	StateError
)

func (s SelectionState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "none"
	}
}

// Directory is the read-only user listing collaborator.
type Directory interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
}

type Coordinator struct {
	store *store.Store
	dir   Directory

	mu      sync.Mutex
	state   SelectionState
	lastErr error
}

func New(s *store.Store, dir Directory) *Coordinator {
	return &Coordinator{store: s, dir: dir, state: StateNone}
}

// Refresh reloads the project list for the list view.
func (c *Coordinator) Refresh(ctx context.Context) error {
	return c.store.Load(ctx)
}

// Select opens a project in the detail view. The state only reflects the
// outcome if this selection is still the current one when the roster call
// resolves; a stale resolution leaves state alone.
func (c *Coordinator) Select(ctx context.Context, projectID string) error {
	c.setState(StateLoading, nil)

	err := c.store.Select(ctx, projectID)

	if c.store.SelectedProjectID() != projectID {
		// Selection moved on (re-select or delete) while loading.
		return err
	}
	if err != nil {
		c.setState(StateError, err)
		return err
	}
	c.setState(StateReady, nil)
	return nil
}

// Retry reloads the roster for the current selection after a failed load.
func (c *Coordinator) Retry(ctx context.Context) error {
	projectID := c.store.SelectedProjectID()
	if projectID == "" {
		return apperr.Validation("no project selected")
	}
	return c.Select(ctx, projectID)
}

// Deselect returns the user to the list view.
func (c *Coordinator) Deselect() {
	c.store.Deselect()
	c.setState(StateNone, nil)
}

// AddMember runs the add-member flow: fast local duplicate check, then the
// store mutation. View-local counters are never touched; adapters re-read
// store state after the call.
func (c *Coordinator) AddMember(ctx context.Context, projectID, userID string) (*domain.Membership, error) {
	if c.store.SelectedProjectID() != projectID {
		return nil, apperr.Validation("project is not open in the detail view")
	}
	for _, m := range c.store.Roster() {
		if m.UserID == userID {
			return nil, apperr.Conflict("user is already a member of this project")
		}
	}
	return c.store.AddMember(ctx, userID)
}

func (c *Coordinator) RemoveMember(ctx context.Context, membershipID string) error {
	return c.store.RemoveMember(ctx, membershipID)
}

// DeleteProject requires the caller to have collected an explicit
// confirmation before anything is sent to the registry. If the deleted
// project was selected, the detail view is cleared and the user lands
// back on the list.
func (c *Coordinator) DeleteProject(ctx context.Context, projectID string, confirmed bool) error {
	if !confirmed {
		return apperr.Validation("deletion requires confirmation")
	}

	wasSelected := c.store.SelectedProjectID() == projectID
	err := c.store.DeleteProject(ctx, projectID)
	if err != nil && !apperr.IsNotFound(err) {
		return err
	}
	if wasSelected {
		c.setState(StateNone, nil)
	}
	return err
}

// EditChanges carries only the fields the edit form actually changed.
// Ownership is deliberately absent: moving it is a separate flow.
type EditChanges struct {
	Name        *string
	Description *string
	ImageURL    *string
}

// EditProject merges the changed fields onto the last-known full project
// and sends the merged object; the registry's update is a total replace,
// so a partial payload must never go over the wire.
func (c *Coordinator) EditProject(ctx context.Context, projectID string, changes EditChanges) (*domain.Project, error) {
	current, ok := c.store.Project(projectID)
	if !ok {
		return nil, apperr.NotFound("project is not loaded")
	}

	fields := domain.ProjectFields{
		Name:        current.Name,
		Description: current.Description,
		ImageURL:    current.ImageURL,
		OwnerID:     current.OwnerID,
	}
	if changes.Name != nil {
		fields.Name = *changes.Name
	}
	if changes.Description != nil {
		fields.Description = *changes.Description
	}
	if changes.ImageURL != nil {
		fields.ImageURL = *changes.ImageURL
	}
	if fields.Name == "" {
		return nil, apperr.Validation("project name is required")
	}

	return c.store.UpdateProject(ctx, projectID, fields)
}

// CreateProject creates a project with its owner; the registry seeds the
// owner's membership so the roster is never ownerless.
func (c *Coordinator) CreateProject(ctx context.Context, fields domain.ProjectFields) (*domain.Project, error) {
	if fields.Name == "" {
		return nil, apperr.Validation("project name is required")
	}
	if fields.OwnerID == "" {
		return nil, apperr.Validation("project owner is required")
	}
	return c.store.CreateProject(ctx, fields)
}

// TransferOwner moves ownership and then refreshes the roster so the
// owner flags on screen match the registry again.
func (c *Coordinator) TransferOwner(ctx context.Context, projectID, newOwnerID string) (*domain.Project, error) {
	updated, err := c.store.TransferOwner(ctx, projectID, newOwnerID)
	if err != nil {
		return nil, err
	}
	if c.store.SelectedProjectID() == projectID {
		if err := c.store.LoadRoster(ctx, projectID); err != nil {
			return updated, err
		}
	}
	return updated, nil
}

// AvailableUsers computes the users that can still be added to the
// selected project: the whole directory minus the current roster. The
// result is derived on every call, never cached.
func (c *Coordinator) AvailableUsers(ctx context.Context, projectID string) ([]domain.User, error) {
	if c.store.SelectedProjectID() != projectID {
		return nil, apperr.Validation("project is not open in the detail view")
	}

	users, err := c.dir.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	taken := make(map[string]struct{})
	for _, m := range c.store.Roster() {
		taken[m.UserID] = struct{}{}
	}

	out := make([]domain.User, 0, len(users))
	for _, u := range users {
		if _, ok := taken[u.ID]; !ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// State reports the detail view lifecycle state and the last roster error.
func (c *Coordinator) State() (SelectionState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.lastErr
}

func (c *Coordinator) setState(s SelectionState, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
	c.lastErr = err
}
