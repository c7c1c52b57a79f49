package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound  = errors.New("user not found")
	ErrDuplicate = errors.New("user id already exists")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

// User ids are assigned by the organization (member card numbers), not
// generated here, so creation takes the id as input.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Repo) List(ctx context.Context) ([]User, error) {
	const q = `
select id, name, email, avatar_url, created_at, updated_at
from users
order by name asc;
`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]User, 0, 32)
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, id string) (*User, error) {
	const q = `
select id, name, email, avatar_url, created_at, updated_at
from users
where id = $1;
`
	var u User
	err := r.db.QueryRow(ctx, q, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repo) Create(ctx context.Context, id, name, email, avatarURL string) (*User, error) {
	if id == "" {
		return nil, fmt.Errorf("id required")
	}
	if name == "" {
		return nil, fmt.Errorf("name required")
	}

	const q = `
insert into users (id, name, email, avatar_url)
values ($1, $2, $3, $4)
returning id, name, email, avatar_url, created_at, updated_at;
`
	var u User
	err := r.db.QueryRow(ctx, q, id, name, email, avatarURL).
		Scan(&u.ID, &u.Name, &u.Email, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &u, nil
}

// Update replaces a user's profile fields.
func (r *Repo) Update(ctx context.Context, id, name, email, avatarURL string) (*User, error) {
	const q = `
update users
set name = $2, email = $3, avatar_url = $4, updated_at = now()
where id = $1
returning id, name, email, avatar_url, created_at, updated_at;
`
	var u User
	err := r.db.QueryRow(ctx, q, id, name, email, avatarURL).
		Scan(&u.ID, &u.Name, &u.Email, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
