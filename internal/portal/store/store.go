// Package store is the single source of truth for loaded projects, the
// selected project's roster, and member counts. Every mutation is
// confirmed-only: local state changes after the registry acknowledged the
// operation, never before, and a failed call leaves state exactly as it
// was. Only this package touches MemberCount.
package store

import (
	"context"
	"sync"

	"github.com/orgboard/portal-backend/internal/apperr"
	"github.com/orgboard/portal-backend/internal/portal/domain"
)

// Gateway is the slice of the registry client the store needs.
type Gateway interface {
	ListProjects(ctx context.Context) ([]domain.Project, error)
	CreateProject(ctx context.Context, fields domain.ProjectFields) (*domain.Project, error)
	UpdateProject(ctx context.Context, id string, fields domain.ProjectFields) (*domain.Project, error)
	DeleteProject(ctx context.Context, id string) error
	ListMembers(ctx context.Context, projectID string) ([]domain.Membership, error)
	AddMember(ctx context.Context, projectID, userID string) (*domain.Membership, error)
	RemoveMember(ctx context.Context, membershipID string) error
	TransferOwner(ctx context.Context, projectID, newOwnerID string) (*domain.Project, error)
}

type Store struct {
	gw Gateway

	mu                sync.Mutex
	projects          []domain.Project
	selectedProjectID string
	roster            []domain.Membership
	// pending guards against double-submitting the same mutation while
	// its first submission is still in flight.
	pending map[string]struct{}
}

func New(gw Gateway) *Store {
	return &Store{
		gw:      gw,
		pending: make(map[string]struct{}),
	}
}

// Load replaces the project set wholesale. On error the previous set is
// kept: stale-but-consistent beats empty-but-wrong.
func (s *Store) Load(ctx context.Context) error {
	projects, err := s.gw.ListProjects(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects = projects
	return nil
}

// Select marks projectID as the open project and loads its roster. A
// response for a selection that has since moved on is discarded, so two
// rapid selects can never leave the roster of the first one on screen.
func (s *Store) Select(ctx context.Context, projectID string) error {
	s.mu.Lock()
	s.selectedProjectID = projectID
	s.roster = nil
	s.mu.Unlock()

	return s.LoadRoster(ctx, projectID)
}

// Deselect clears the selection and roster.
func (s *Store) Deselect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedProjectID = ""
	s.roster = nil
}

// LoadRoster fetches the membership list for projectID. The request is
// tagged with the project it was issued for; at resolution time the tag
// is compared against the *current* selection and stale results are
// dropped without touching state. On success the project's MemberCount is
// reconciled to the fresh roster length, which repairs any drift in the
// count the registry reported on the project object itself.
func (s *Store) LoadRoster(ctx context.Context, projectID string) error {
	members, err := s.gw.ListMembers(ctx, projectID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selectedProjectID != projectID {
		// Stale response; selection moved while the call was in flight.
		return nil
	}

	if err != nil {
		if apperr.IsNotFound(err) {
			s.dropProjectLocked(projectID)
		}
		return err
	}

	s.roster = members
	s.setCountLocked(projectID, len(members))
	return nil
}

// AddMember adds userID to the selected project's roster. Duplicates are
// rejected locally before any network round trip; a true double-submit
// race is left to the registry's uniqueness constraint, whose Conflict is
// surfaced without corrupting local state.
func (s *Store) AddMember(ctx context.Context, userID string) (*domain.Membership, error) {
	s.mu.Lock()
	projectID := s.selectedProjectID
	if projectID == "" {
		s.mu.Unlock()
		return nil, apperr.Validation("no project selected")
	}
	for _, m := range s.roster {
		if m.UserID == userID {
			s.mu.Unlock()
			return nil, apperr.Conflict("user is already a member of this project")
		}
	}
	key := "add:" + projectID + ":" + userID
	if _, inflight := s.pending[key]; inflight {
		s.mu.Unlock()
		return nil, apperr.Conflict("add member already in progress")
	}
	s.pending[key] = struct{}{}
	s.mu.Unlock()

	membership, err := s.gw.AddMember(ctx, projectID, userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, key)

	if err != nil {
		if apperr.IsNotFound(err) {
			// The project vanished remotely; resync instead of keeping a
			// dangling entry.
			s.dropProjectLocked(projectID)
		}
		return nil, err
	}

	if !s.hasProjectLocked(projectID) {
		// Deleted while the add was in flight; the confirmed membership
		// must not resurrect the project or leave a roster entry behind.
		return membership, nil
	}

	s.bumpCountLocked(projectID, +1)
	if s.selectedProjectID == projectID {
		s.roster = append(s.roster, *membership)
	}
	return membership, nil
}

// RemoveMember removes a membership from the selected project's roster by
// its id. A NotFound from the registry still removes the local entry: the
// membership is gone remotely either way.
func (s *Store) RemoveMember(ctx context.Context, membershipID string) error {
	s.mu.Lock()
	projectID := s.selectedProjectID
	found := false
	for _, m := range s.roster {
		if m.ID == membershipID {
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return apperr.NotFound("membership is not in the current roster")
	}
	key := "rm:" + membershipID
	if _, inflight := s.pending[key]; inflight {
		s.mu.Unlock()
		return apperr.Conflict("remove member already in progress")
	}
	s.pending[key] = struct{}{}
	s.mu.Unlock()

	err := s.gw.RemoveMember(ctx, membershipID)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, key)

	if err != nil && !apperr.IsNotFound(err) {
		return err
	}

	if !s.hasProjectLocked(projectID) {
		return err
	}

	if s.selectedProjectID == projectID {
		if s.removeFromRosterLocked(membershipID) {
			s.bumpCountLocked(projectID, -1)
		}
	} else {
		// Selection moved while the call was in flight. The roster no
		// longer belongs to projectID, but its count was last reconciled
		// with this membership included.
		s.bumpCountLocked(projectID, -1)
	}
	return err
}

// CreateProject asks the registry for a new project; the registry creates
// the owner membership alongside it, so the returned count starts at 1.
func (s *Store) CreateProject(ctx context.Context, fields domain.ProjectFields) (*domain.Project, error) {
	project, err := s.gw.CreateProject(ctx, fields)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects = append(s.projects, *project)
	return project, nil
}

// UpdateProject sends the full merged object and, on success, replaces
// the project in place. MemberCount is preserved from local state; an
// edit never legitimately changes it. The roster is untouched.
func (s *Store) UpdateProject(ctx context.Context, projectID string, fields domain.ProjectFields) (*domain.Project, error) {
	updated, err := s.gw.UpdateProject(ctx, projectID, fields)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		if apperr.IsNotFound(err) {
			s.dropProjectLocked(projectID)
		}
		return nil, err
	}

	for i := range s.projects {
		if s.projects[i].ID == projectID {
			updated.MemberCount = s.projects[i].MemberCount
			s.projects[i] = *updated
			break
		}
	}
	return updated, nil
}

// DeleteProject removes the project remotely and then locally. If the
// deleted project was selected, selection and roster are cleared. A
// NotFound also drops the local entry (already gone remotely) but is
// still surfaced to the caller.
func (s *Store) DeleteProject(ctx context.Context, projectID string) error {
	s.mu.Lock()
	key := "del:" + projectID
	if _, inflight := s.pending[key]; inflight {
		s.mu.Unlock()
		return apperr.Conflict("delete already in progress")
	}
	s.pending[key] = struct{}{}
	s.mu.Unlock()

	err := s.gw.DeleteProject(ctx, projectID)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, key)

	if err != nil && !apperr.IsNotFound(err) {
		return err
	}

	s.dropProjectLocked(projectID)
	return err
}

// TransferOwner moves ownership through the registry's explicit transfer
// operation and updates the local project. The caller should reload the
// roster afterwards to pick up the moved owner flag.
func (s *Store) TransferOwner(ctx context.Context, projectID, newOwnerID string) (*domain.Project, error) {
	updated, err := s.gw.TransferOwner(ctx, projectID, newOwnerID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		if apperr.IsNotFound(err) {
			s.dropProjectLocked(projectID)
		}
		return nil, err
	}

	for i := range s.projects {
		if s.projects[i].ID == projectID {
			// The transfer response carries a freshly derived count, so
			// take the whole object as-is.
			s.projects[i] = *updated
			break
		}
	}
	return updated, nil
}

// Projects returns a copy of the loaded project set.
func (s *Store) Projects() []domain.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Project, len(s.projects))
	copy(out, s.projects)
	return out
}

// Project returns the loaded project with the given id.
func (s *Store) Project(projectID string) (domain.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.projects {
		if p.ID == projectID {
			return p, true
		}
	}
	return domain.Project{}, false
}

func (s *Store) SelectedProjectID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedProjectID
}

// Roster returns a copy of the selected project's membership list.
func (s *Store) Roster() []domain.Membership {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Membership, len(s.roster))
	copy(out, s.roster)
	return out
}

// Reset tears the store down to its initial empty state.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects = nil
	s.selectedProjectID = ""
	s.roster = nil
	s.pending = make(map[string]struct{})
}

func (s *Store) hasProjectLocked(projectID string) bool {
	for _, p := range s.projects {
		if p.ID == projectID {
			return true
		}
	}
	return false
}

func (s *Store) dropProjectLocked(projectID string) {
	for i, p := range s.projects {
		if p.ID == projectID {
			s.projects = append(s.projects[:i], s.projects[i+1:]...)
			break
		}
	}
	if s.selectedProjectID == projectID {
		s.selectedProjectID = ""
		s.roster = nil
	}
}

func (s *Store) setCountLocked(projectID string, count int) {
	for i := range s.projects {
		if s.projects[i].ID == projectID {
			s.projects[i].MemberCount = count
			return
		}
	}
}

func (s *Store) bumpCountLocked(projectID string, delta int) {
	for i := range s.projects {
		if s.projects[i].ID == projectID {
			s.projects[i].MemberCount += delta
			if s.projects[i].MemberCount < 0 {
				s.projects[i].MemberCount = 0
			}
			return
		}
	}
}

func (s *Store) removeFromRosterLocked(membershipID string) bool {
	for i, m := range s.roster {
		if m.ID == membershipID {
			s.roster = append(s.roster[:i], s.roster[i+1:]...)
			return true
		}
	}
	return false
}
