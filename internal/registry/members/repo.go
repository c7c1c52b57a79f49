package members

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orgboard/portal-backend/internal/registry/users"
)

var (
	ErrNotFound        = errors.New("membership not found")
	ErrProjectNotFound = errors.New("project not found")
	ErrDuplicate       = errors.New("user is already a member")
	ErrUnknownUser     = errors.New("user does not exist")
	// ErrOwnerMembership: the owner's membership can only disappear through
	// project deletion or an owner transfer, never a plain remove.
	ErrOwnerMembership = errors.New("owner membership cannot be removed")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

type Membership struct {
	ID        string     `json:"id"`
	ProjectID string     `json:"project_id"`
	UserID    string     `json:"user_id"`
	IsOwner   bool       `json:"is_owner"`
	User      users.User `json:"user"`
	CreatedAt time.Time  `json:"created_at"`
}

// ListByProject returns the roster with each entry's user embedded.
func (r *Repo) ListByProject(ctx context.Context, projectID string) ([]Membership, error) {
	if err := r.checkProject(ctx, projectID); err != nil {
		return nil, err
	}

	const q = `
select m.id, m.project_id, m.user_id, m.is_owner, m.created_at,
       u.id, u.name, u.email, u.avatar_url, u.created_at, u.updated_at
from memberships m
join users u on u.id = m.user_id
where m.project_id = $1
order by m.created_at asc;
`
	rows, err := r.db.Query(ctx, q, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Membership, 0, 8)
	for rows.Next() {
		var m Membership
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.UserID, &m.IsOwner, &m.CreatedAt,
			&m.User.ID, &m.User.Name, &m.User.Email, &m.User.AvatarURL,
			&m.User.CreatedAt, &m.User.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Add creates a membership. The (project_id, user_id) unique index is the
// final word on duplicates; a violation surfaces as ErrDuplicate.
func (r *Repo) Add(ctx context.Context, projectID, userID string) (*Membership, error) {
	if err := r.checkProject(ctx, projectID); err != nil {
		return nil, err
	}

	const q = `
insert into memberships (id, project_id, user_id, is_owner)
values ($1, $2, $3, false)
returning id, project_id, user_id, is_owner, created_at;
`
	var m Membership
	err := r.db.QueryRow(ctx, q, uuid.New().String(), projectID, userID).
		Scan(&m.ID, &m.ProjectID, &m.UserID, &m.IsOwner, &m.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.UniqueViolation:
				return nil, ErrDuplicate
			case pgerrcode.ForeignKeyViolation:
				return nil, ErrUnknownUser
			}
		}
		return nil, err
	}

	const uq = `
select id, name, email, avatar_url, created_at, updated_at from users where id = $1;
`
	if err := r.db.QueryRow(ctx, uq, userID).
		Scan(&m.User.ID, &m.User.Name, &m.User.Email, &m.User.AvatarURL,
			&m.User.CreatedAt, &m.User.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// Remove deletes a membership by id. Owner rows are refused.
func (r *Repo) Remove(ctx context.Context, membershipID string) error {
	ct, err := r.db.Exec(ctx,
		`delete from memberships where id = $1 and is_owner = false;`, membershipID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() > 0 {
		return nil
	}

	var isOwner bool
	err = r.db.QueryRow(ctx,
		`select is_owner from memberships where id = $1;`, membershipID).Scan(&isOwner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if isOwner {
		return ErrOwnerMembership
	}
	return ErrNotFound
}

func (r *Repo) checkProject(ctx context.Context, projectID string) error {
	var exists bool
	err := r.db.QueryRow(ctx,
		`select exists (select 1 from projects where id = $1 and deleted_at is null);`, projectID).
		Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrProjectNotFound
	}
	return nil
}
