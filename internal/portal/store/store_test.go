package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orgboard/portal-backend/internal/apperr"
	"github.com/orgboard/portal-backend/internal/portal/domain"
)

// fakeGateway scripts registry responses per test. Unset functions fail
// the test if called.
type fakeGateway struct {
	t *testing.T

	listProjects  func(ctx context.Context) ([]domain.Project, error)
	createProject func(ctx context.Context, fields domain.ProjectFields) (*domain.Project, error)
	updateProject func(ctx context.Context, id string, fields domain.ProjectFields) (*domain.Project, error)
	deleteProject func(ctx context.Context, id string) error
	listMembers   func(ctx context.Context, projectID string) ([]domain.Membership, error)
	addMember     func(ctx context.Context, projectID, userID string) (*domain.Membership, error)
	removeMember  func(ctx context.Context, membershipID string) error
	transferOwner func(ctx context.Context, projectID, newOwnerID string) (*domain.Project, error)
}

func (f *fakeGateway) ListProjects(ctx context.Context) ([]domain.Project, error) {
	if f.listProjects == nil {
		f.t.Fatal("unexpected ListProjects call")
	}
	return f.listProjects(ctx)
}

func (f *fakeGateway) CreateProject(ctx context.Context, fields domain.ProjectFields) (*domain.Project, error) {
	if f.createProject == nil {
		f.t.Fatal("unexpected CreateProject call")
	}
	return f.createProject(ctx, fields)
}

func (f *fakeGateway) UpdateProject(ctx context.Context, id string, fields domain.ProjectFields) (*domain.Project, error) {
	if f.updateProject == nil {
		f.t.Fatal("unexpected UpdateProject call")
	}
	return f.updateProject(ctx, id, fields)
}

func (f *fakeGateway) DeleteProject(ctx context.Context, id string) error {
	if f.deleteProject == nil {
		f.t.Fatal("unexpected DeleteProject call")
	}
	return f.deleteProject(ctx, id)
}

func (f *fakeGateway) ListMembers(ctx context.Context, projectID string) ([]domain.Membership, error) {
	if f.listMembers == nil {
		f.t.Fatal("unexpected ListMembers call")
	}
	return f.listMembers(ctx, projectID)
}

func (f *fakeGateway) AddMember(ctx context.Context, projectID, userID string) (*domain.Membership, error) {
	if f.addMember == nil {
		f.t.Fatal("unexpected AddMember call")
	}
	return f.addMember(ctx, projectID, userID)
}

func (f *fakeGateway) RemoveMember(ctx context.Context, membershipID string) error {
	if f.removeMember == nil {
		f.t.Fatal("unexpected RemoveMember call")
	}
	return f.removeMember(ctx, membershipID)
}

func (f *fakeGateway) TransferOwner(ctx context.Context, projectID, newOwnerID string) (*domain.Project, error) {
	if f.transferOwner == nil {
		f.t.Fatal("unexpected TransferOwner call")
	}
	return f.transferOwner(ctx, projectID, newOwnerID)
}

func p1Roster() []domain.Membership {
	return []domain.Membership{
		{ID: "m1", ProjectID: "p1", UserID: "u1", IsOwner: true},
		{ID: "m2", ProjectID: "p1", UserID: "u2"},
	}
}

// loadedStore returns a store with p1 loaded and selected, roster [m1, m2].
func loadedStore(t *testing.T, fake *fakeGateway) *Store {
	t.Helper()

	fake.listProjects = func(ctx context.Context) ([]domain.Project, error) {
		return []domain.Project{{ID: "p1", Name: "Portal", OwnerID: "u1", MemberCount: 2}}, nil
	}
	fake.listMembers = func(ctx context.Context, projectID string) ([]domain.Membership, error) {
		require.Equal(t, "p1", projectID)
		return p1Roster(), nil
	}

	s := New(fake)
	ctx := context.Background()
	require.NoError(t, s.Load(ctx))
	require.NoError(t, s.Select(ctx, "p1"))
	return s
}

func TestLoad_ErrorKeepsPreviousProjects(t *testing.T) {
	fake := &fakeGateway{t: t}
	s := loadedStore(t, fake)

	fake.listProjects = func(ctx context.Context) ([]domain.Project, error) {
		return nil, apperr.Network("call registry", assert.AnError)
	}

	err := s.Load(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.IsNetwork(err))

	// Stale-but-consistent beats empty-but-wrong.
	projects := s.Projects()
	require.Len(t, projects, 1)
	assert.Equal(t, "p1", projects[0].ID)
}

func TestLoadRoster_ReconcilesDriftedCount(t *testing.T) {
	fake := &fakeGateway{t: t}
	fake.listProjects = func(ctx context.Context) ([]domain.Project, error) {
		// Count as reported by the registry has drifted.
		return []domain.Project{{ID: "p1", OwnerID: "u1", MemberCount: 5}}, nil
	}
	fake.listMembers = func(ctx context.Context, projectID string) ([]domain.Membership, error) {
		return p1Roster(), nil
	}

	s := New(fake)
	ctx := context.Background()
	require.NoError(t, s.Load(ctx))
	require.NoError(t, s.Select(ctx, "p1"))

	p, ok := s.Project("p1")
	require.True(t, ok)
	assert.Equal(t, 2, p.MemberCount)
}

func TestAddThenRemoveMember_CountStaysConsistent(t *testing.T) {
	fake := &fakeGateway{t: t}
	s := loadedStore(t, fake)

	fake.addMember = func(ctx context.Context, projectID, userID string) (*domain.Membership, error) {
		require.Equal(t, "p1", projectID)
		require.Equal(t, "u3", userID)
		return &domain.Membership{ID: "m3", ProjectID: "p1", UserID: "u3"}, nil
	}

	ctx := context.Background()
	m, err := s.AddMember(ctx, "u3")
	require.NoError(t, err)
	assert.Equal(t, "m3", m.ID)

	roster := s.Roster()
	require.Len(t, roster, 3)
	assert.Equal(t, []string{"m1", "m2", "m3"}, rosterIDs(roster))

	p, _ := s.Project("p1")
	assert.Equal(t, 3, p.MemberCount)

	fake.removeMember = func(ctx context.Context, membershipID string) error {
		require.Equal(t, "m2", membershipID)
		return nil
	}

	require.NoError(t, s.RemoveMember(ctx, "m2"))

	roster = s.Roster()
	assert.Equal(t, []string{"m1", "m3"}, rosterIDs(roster))
	p, _ = s.Project("p1")
	assert.Equal(t, 2, p.MemberCount)
}

func TestAddMember_DuplicateRejectedWithoutRoundTrip(t *testing.T) {
	fake := &fakeGateway{t: t}
	s := loadedStore(t, fake)

	calls := 0
	fake.addMember = func(ctx context.Context, projectID, userID string) (*domain.Membership, error) {
		calls++
		return &domain.Membership{ID: "m3", ProjectID: "p1", UserID: userID}, nil
	}

	// u2 is already on the roster; the reject must be local.
	_, err := s.AddMember(context.Background(), "u2")
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
	assert.Zero(t, calls)

	p, _ := s.Project("p1")
	assert.Equal(t, 2, p.MemberCount)
	assert.Len(t, s.Roster(), 2)
}

func TestAddMember_RacedConflictLeavesStateUntouched(t *testing.T) {
	fake := &fakeGateway{t: t}
	s := loadedStore(t, fake)

	fake.addMember = func(ctx context.Context, projectID, userID string) (*domain.Membership, error) {
		// The registry's uniqueness constraint resolved a double submit.
		return nil, apperr.Conflict("user is already a member")
	}

	before := s.Roster()
	_, err := s.AddMember(context.Background(), "u9")
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))

	assert.Equal(t, before, s.Roster())
	p, _ := s.Project("p1")
	assert.Equal(t, 2, p.MemberCount)
}

func TestAddMember_NetworkFailureLeavesStateUntouched(t *testing.T) {
	fake := &fakeGateway{t: t}
	s := loadedStore(t, fake)

	fake.addMember = func(ctx context.Context, projectID, userID string) (*domain.Membership, error) {
		return nil, apperr.Network("call registry", assert.AnError)
	}

	projectsBefore := s.Projects()
	rosterBefore := s.Roster()

	_, err := s.AddMember(context.Background(), "u3")
	require.Error(t, err)
	assert.True(t, apperr.IsNetwork(err))

	assert.Equal(t, projectsBefore, s.Projects())
	assert.Equal(t, rosterBefore, s.Roster())
}

func TestSelect_StaleRosterResponseDiscarded(t *testing.T) {
	fake := &fakeGateway{t: t}
	fake.listProjects = func(ctx context.Context) ([]domain.Project, error) {
		return []domain.Project{
			{ID: "a", MemberCount: 1},
			{ID: "b", MemberCount: 1},
		}, nil
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	fake.listMembers = func(ctx context.Context, projectID string) ([]domain.Membership, error) {
		if projectID == "a" {
			close(entered)
			<-release
			return []domain.Membership{{ID: "ma", ProjectID: "a", UserID: "u1", IsOwner: true}}, nil
		}
		return []domain.Membership{{ID: "mb", ProjectID: "b", UserID: "u2", IsOwner: true}}, nil
	}

	s := New(fake)
	ctx := context.Background()
	require.NoError(t, s.Load(ctx))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// A's roster response arrives after the selection moved to b.
		_ = s.Select(ctx, "a")
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("roster load for a never started")
	}

	require.NoError(t, s.Select(ctx, "b"))
	close(release)
	wg.Wait()

	assert.Equal(t, "b", s.SelectedProjectID())
	assert.Equal(t, []string{"mb"}, rosterIDs(s.Roster()))
}

func TestDeleteProject_WhileAddInFlight(t *testing.T) {
	fake := &fakeGateway{t: t}
	s := loadedStore(t, fake)

	entered := make(chan struct{})
	release := make(chan struct{})
	fake.addMember = func(ctx context.Context, projectID, userID string) (*domain.Membership, error) {
		close(entered)
		<-release
		return &domain.Membership{ID: "m3", ProjectID: "p1", UserID: userID}, nil
	}
	fake.deleteProject = func(ctx context.Context, id string) error {
		return nil
	}

	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = s.AddMember(ctx, "u3")
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("add member never started")
	}

	require.NoError(t, s.DeleteProject(ctx, "p1"))
	close(release)
	wg.Wait()

	// The confirmed add must not resurrect the project or leave a roster
	// entry behind.
	assert.Empty(t, s.Projects())
	assert.Empty(t, s.Roster())
	assert.Empty(t, s.SelectedProjectID())
}

func TestRemoveMember_NotFoundResyncs(t *testing.T) {
	fake := &fakeGateway{t: t}
	s := loadedStore(t, fake)

	fake.removeMember = func(ctx context.Context, membershipID string) error {
		return apperr.NotFound("membership not found")
	}

	err := s.RemoveMember(context.Background(), "m2")
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))

	// Gone remotely either way; the local entry must not dangle.
	assert.Equal(t, []string{"m1"}, rosterIDs(s.Roster()))
	p, _ := s.Project("p1")
	assert.Equal(t, 1, p.MemberCount)
}

func TestDeleteProject_FailureKeepsProjectListed(t *testing.T) {
	fake := &fakeGateway{t: t}
	s := loadedStore(t, fake)

	fake.deleteProject = func(ctx context.Context, id string) error {
		return apperr.Network("call registry", assert.AnError)
	}

	err := s.DeleteProject(context.Background(), "p1")
	require.Error(t, err)

	require.Len(t, s.Projects(), 1)
	assert.Equal(t, "p1", s.SelectedProjectID())
	assert.Len(t, s.Roster(), 2)
}

func TestUpdateProject_PreservesCountAndRoster(t *testing.T) {
	fake := &fakeGateway{t: t}
	s := loadedStore(t, fake)

	fake.updateProject = func(ctx context.Context, id string, fields domain.ProjectFields) (*domain.Project, error) {
		// The registry echoes the replaced object; its count is whatever
		// it was at request time and must not clobber local bookkeeping.
		return &domain.Project{ID: id, Name: fields.Name, Description: fields.Description, OwnerID: fields.OwnerID}, nil
	}

	updated, err := s.UpdateProject(context.Background(), "p1", domain.ProjectFields{
		Name: "Portal v2", OwnerID: "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Portal v2", updated.Name)

	p, _ := s.Project("p1")
	assert.Equal(t, "Portal v2", p.Name)
	assert.Equal(t, 2, p.MemberCount)
	assert.Len(t, s.Roster(), 2)
}

func TestAddMember_NoSelection(t *testing.T) {
	fake := &fakeGateway{t: t}
	s := New(fake)

	_, err := s.AddMember(context.Background(), "u1")
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

func rosterIDs(roster []domain.Membership) []string {
	out := make([]string, 0, len(roster))
	for _, m := range roster {
		out = append(out, m.ID)
	}
	return out
}
