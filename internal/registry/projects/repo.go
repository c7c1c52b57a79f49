package projects

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orgboard/portal-backend/internal/registry/ids"
)

var (
	ErrNotFound = errors.New("project not found")
	// ErrOwnerImmutable: a generic edit tried to change owner_id. Ownership
	// moves only through the explicit transfer operation.
	ErrOwnerImmutable = errors.New("owner cannot be changed by an edit")
	ErrUnknownUser    = errors.New("user does not exist")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

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

type Fields struct {
	Name        string
	Description string
	ImageURL    string
	OwnerID     string
}

// member_count is always derived, never stored; drift between a stored
// counter and the membership table cannot happen on this side.
const projectColumns = `
p.id, p.name, p.description, p.image_url, p.owner_id,
(select count(*) from memberships m where m.project_id = p.id) as member_count,
p.created_at, p.updated_at`

// Create inserts the project and its owner membership in one transaction,
// so a project is never visible without its owner on the roster. A public
// id collision aborts the transaction, so the whole attempt is retried
// with a fresh id.
func (r *Repo) Create(ctx context.Context, f Fields) (*Project, error) {
	if f.Name == "" {
		return nil, fmt.Errorf("name required")
	}
	if f.OwnerID == "" {
		return nil, fmt.Errorf("owner required")
	}

	for i := 0; i < 5; i++ {
		p, err := r.tryCreate(ctx, f)
		if err == nil {
			return p, nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.UniqueViolation {
				continue
			}
			if pgErr.Code == pgerrcode.ForeignKeyViolation {
				return nil, ErrUnknownUser
			}
		}
		return nil, err
	}

	return nil, fmt.Errorf("failed to generate unique project id")
}

func (r *Repo) tryCreate(ctx context.Context, f Fields) (*Project, error) {
	publicID, err := ids.NewPublicID("proj")
	if err != nil {
		return nil, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const q = `
insert into projects (id, name, description, image_url, owner_id)
values ($1, $2, $3, $4, $5)
returning id, name, description, image_url, owner_id, created_at, updated_at;
`
	var p Project
	err = tx.QueryRow(ctx, q, publicID, f.Name, f.Description, f.ImageURL, f.OwnerID).
		Scan(&p.ID, &p.Name, &p.Description, &p.ImageURL, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	const mq = `
insert into memberships (id, project_id, user_id, is_owner)
values ($1, $2, $3, true);
`
	if _, err := tx.Exec(ctx, mq, uuid.New().String(), p.ID, f.OwnerID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	p.MemberCount = 1
	return &p, nil
}

func (r *Repo) List(ctx context.Context) ([]Project, error) {
	q := `select ` + projectColumns + `
from projects p
where p.deleted_at is null
order by p.created_at desc;
`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Project, 0, 16)
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.ImageURL, &p.OwnerID,
			&p.MemberCount, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, id string) (*Project, error) {
	q := `select ` + projectColumns + `
from projects p
where p.id = $1 and p.deleted_at is null;
`
	var p Project
	err := r.db.QueryRow(ctx, q, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.ImageURL, &p.OwnerID,
			&p.MemberCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Update is a full replace of the editable fields. The submitted owner
// must match the stored one; moving ownership is a separate operation.
func (r *Repo) Update(ctx context.Context, id string, f Fields) (*Project, error) {
	if f.Name == "" {
		return nil, fmt.Errorf("name required")
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var currentOwner string
	err = tx.QueryRow(ctx,
		`select owner_id from projects where id = $1 and deleted_at is null for update;`, id).
		Scan(&currentOwner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if f.OwnerID != "" && f.OwnerID != currentOwner {
		return nil, ErrOwnerImmutable
	}

	q := `
update projects p
set name = $2, description = $3, image_url = $4, updated_at = now()
where p.id = $1
returning ` + projectColumns + `;`
	var p Project
	err = tx.QueryRow(ctx, q, id, f.Name, f.Description, f.ImageURL).
		Scan(&p.ID, &p.Name, &p.Description, &p.ImageURL, &p.OwnerID,
			&p.MemberCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &p, nil
}

// SoftDelete marks a project as deleted; memberships stay until the purge
// job reclaims them.
func (r *Repo) SoftDelete(ctx context.Context, id string) (bool, error) {
	const q = `
update projects
set deleted_at = now(), updated_at = now()
where id = $1 and deleted_at is null;
`
	ct, err := r.db.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

// TransferOwner demotes the old owner's membership and promotes (or
// creates) the new owner's in the same transaction, keeping exactly one
// owner row per project at all times.
func (r *Repo) TransferOwner(ctx context.Context, id, newOwnerID string) (*Project, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var currentOwner string
	err = tx.QueryRow(ctx,
		`select owner_id from projects where id = $1 and deleted_at is null for update;`, id).
		Scan(&currentOwner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if currentOwner != newOwnerID {
		if _, err := tx.Exec(ctx,
			`update memberships set is_owner = false where project_id = $1 and is_owner = true;`, id); err != nil {
			return nil, err
		}

		const mq = `
insert into memberships (id, project_id, user_id, is_owner)
values ($1, $2, $3, true)
on conflict (project_id, user_id) do update set is_owner = true;
`
		if _, err := tx.Exec(ctx, mq, uuid.New().String(), id, newOwnerID); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
				return nil, ErrUnknownUser
			}
			return nil, err
		}

		if _, err := tx.Exec(ctx,
			`update projects set owner_id = $2, updated_at = now() where id = $1;`, id, newOwnerID); err != nil {
			return nil, err
		}
	}

	q := `select ` + projectColumns + ` from projects p where p.id = $1;`
	var p Project
	err = tx.QueryRow(ctx, q, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.ImageURL, &p.OwnerID,
			&p.MemberCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &p, nil
}

// PurgeDeleted permanently removes projects soft-deleted before the
// cutoff, memberships first.
func (r *Repo) PurgeDeleted(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
delete from memberships
where project_id in (select id from projects where deleted_at is not null and deleted_at < $1);
`, cutoff); err != nil {
		return 0, err
	}

	ct, err := tx.Exec(ctx,
		`delete from projects where deleted_at is not null and deleted_at < $1;`, cutoff)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}
