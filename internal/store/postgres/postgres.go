// Package postgres implements the record-store contract on PostgreSQL via
// pgx. It mirrors the memory store behavior, including the one-directional
// edit status transitions.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"enhancer/internal/domain"
)

// Store provides PostgreSQL-backed persistence for all record types.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ domain.Store = (*Store)(nil)

const schema = `
create table if not exists users (
	id uuid primary key default gen_random_uuid(),
	email text not null unique,
	password_hash text not null,
	role text not null default 'user',
	created_at timestamptz not null default now()
);
create table if not exists images (
	id uuid primary key default gen_random_uuid(),
	user_id uuid not null references users(id),
	filename text not null,
	storage_key text not null,
	mime text not null,
	created_at timestamptz not null default now()
);
create table if not exists edits (
	id uuid primary key default gen_random_uuid(),
	user_id uuid not null references users(id),
	image_id uuid not null references images(id),
	prompt text not null,
	status text not null default 'queued',
	result_path text not null default '',
	error_message text not null default '',
	created_at timestamptz not null default now(),
	updated_at timestamptz not null default now()
);
create index if not exists idx_edits_user_image on edits(user_id, image_id);
create table if not exists subscriptions (
	user_id uuid primary key references users(id),
	plan text not null default '',
	status text not null
);
create table if not exists usage_counters (
	user_id uuid not null,
	metric text not null,
	count int not null default 0,
	primary key (user_id, metric)
);
`

// Migrate creates the schema when it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u domain.User
	err := s.pool.QueryRow(ctx,
		`insert into users(email, password_hash) values ($1, $2)
		 returning id, email, password_hash, role, created_at`,
		email, passwordHash,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("postgres: create user: %w", err)
	}
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := s.pool.QueryRow(ctx,
		`select id, email, password_hash, role, created_at from users where id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, mapNoRows(err, "get user")
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := s.pool.QueryRow(ctx,
		`select id, email, password_hash, role, created_at from users where email = $1`,
		strings.ToLower(strings.TrimSpace(email)),
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, mapNoRows(err, "get user by email")
	}
	return &u, nil
}

func (s *Store) CreateImage(ctx context.Context, userID, filename, storageKey, mime string) (*domain.Image, error) {
	var img domain.Image
	err := s.pool.QueryRow(ctx,
		`insert into images(user_id, filename, storage_key, mime) values ($1, $2, $3, $4)
		 returning id, user_id, filename, storage_key, mime, created_at`,
		userID, filename, storageKey, mime,
	).Scan(&img.ID, &img.UserID, &img.Filename, &img.StorageKey, &img.MIME, &img.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("postgres: create image: %w", err)
	}
	return &img, nil
}

func (s *Store) GetImage(ctx context.Context, userID, imageID string) (*domain.Image, error) {
	var img domain.Image
	err := s.pool.QueryRow(ctx,
		`select id, user_id, filename, storage_key, mime, created_at
		 from images where id = $1 and user_id = $2`,
		imageID, userID,
	).Scan(&img.ID, &img.UserID, &img.Filename, &img.StorageKey, &img.MIME, &img.CreatedAt)
	if err != nil {
		return nil, mapNoRows(err, "get image")
	}
	return &img, nil
}

func (s *Store) ListImages(ctx context.Context, userID string) ([]domain.Image, error) {
	rows, err := s.pool.Query(ctx,
		`select id, user_id, filename, storage_key, mime, created_at
		 from images where user_id = $1 order by created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list images: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Image, 0)
	for rows.Next() {
		var img domain.Image
		if err := rows.Scan(&img.ID, &img.UserID, &img.Filename, &img.StorageKey, &img.MIME, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan image: %w", err)
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

func (s *Store) CreateEdit(ctx context.Context, userID, imageID, prompt string) (*domain.Edit, error) {
	var e domain.Edit
	err := s.pool.QueryRow(ctx,
		`insert into edits(user_id, image_id, prompt) values ($1, $2, $3)
		 returning id, user_id, image_id, prompt, status, result_path, error_message, created_at, updated_at`,
		userID, imageID, prompt,
	).Scan(&e.ID, &e.UserID, &e.ImageID, &e.Prompt, &e.Status, &e.ResultPath, &e.ErrorMessage, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("postgres: create edit: %w", err)
	}
	return &e, nil
}

func (s *Store) GetEdit(ctx context.Context, userID, editID string) (*domain.Edit, error) {
	var e domain.Edit
	err := s.pool.QueryRow(ctx,
		`select id, user_id, image_id, prompt, status, result_path, error_message, created_at, updated_at
		 from edits where id = $1 and user_id = $2`,
		editID, userID,
	).Scan(&e.ID, &e.UserID, &e.ImageID, &e.Prompt, &e.Status, &e.ResultPath, &e.ErrorMessage, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, mapNoRows(err, "get edit")
	}
	return &e, nil
}

func (s *Store) UpdateEdit(ctx context.Context, editID string, upd domain.EditUpdate) (*domain.Edit, error) {
	// The status guard runs inside the statement so concurrent executors
	// cannot move an edit out of a terminal state.
	var e domain.Edit
	err := s.pool.QueryRow(ctx,
		`update edits set
			status = coalesce($2, status),
			result_path = coalesce($3, result_path),
			error_message = coalesce($4, error_message),
			updated_at = now()
		 where id = $1 and ($2 is null or status = 'queued')
		 returning id, user_id, image_id, prompt, status, result_path, error_message, created_at, updated_at`,
		editID, statusArg(upd.Status), upd.ResultPath, upd.ErrorMessage,
	).Scan(&e.ID, &e.UserID, &e.ImageID, &e.Prompt, &e.Status, &e.ResultPath, &e.ErrorMessage, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the edit does not exist or it is already terminal.
			var exists bool
			if chkErr := s.pool.QueryRow(ctx, `select exists(select 1 from edits where id = $1)`, editID).Scan(&exists); chkErr == nil && exists {
				return nil, domain.ErrInvalidTransition
			}
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("postgres: update edit: %w", err)
	}
	return &e, nil
}

func (s *Store) ListEditsForImage(ctx context.Context, userID, imageID string) ([]domain.Edit, error) {
	rows, err := s.pool.Query(ctx,
		`select id, user_id, image_id, prompt, status, result_path, error_message, created_at, updated_at
		 from edits where user_id = $1 and image_id = $2 order by created_at`,
		userID, imageID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list edits: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Edit, 0)
	for rows.Next() {
		var e domain.Edit
		if err := rows.Scan(&e.ID, &e.UserID, &e.ImageID, &e.Prompt, &e.Status, &e.ResultPath, &e.ErrorMessage, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan edit: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) SetSubscription(ctx context.Context, userID, plan, status string) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := s.pool.QueryRow(ctx,
		`insert into subscriptions(user_id, plan, status) values ($1, $2, $3)
		 on conflict (user_id) do update set plan = excluded.plan, status = excluded.status
		 returning user_id, plan, status`,
		userID, plan, status,
	).Scan(&sub.UserID, &sub.Plan, &sub.Status)
	if err != nil {
		return nil, fmt.Errorf("postgres: set subscription: %w", err)
	}
	return &sub, nil
}

func (s *Store) GetSubscription(ctx context.Context, userID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := s.pool.QueryRow(ctx,
		`select user_id, plan, status from subscriptions where user_id = $1`, userID,
	).Scan(&sub.UserID, &sub.Plan, &sub.Status)
	if err != nil {
		return nil, mapNoRows(err, "get subscription")
	}
	return &sub, nil
}

func (s *Store) IncrementUsage(ctx context.Context, userID, metric string, amount int) (int, error) {
	var total int
	err := s.pool.QueryRow(ctx,
		`insert into usage_counters(user_id, metric, count) values ($1, $2, $3)
		 on conflict (user_id, metric) do update set count = usage_counters.count + excluded.count
		 returning count`,
		userID, metric, amount,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("postgres: increment usage: %w", err)
	}
	return total, nil
}

func (s *Store) GetUsage(ctx context.Context, userID string) (map[string]int, error) {
	rows, err := s.pool.Query(ctx,
		`select metric, count from usage_counters where user_id = $1`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: get usage: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var metric string
		var count int
		if err := rows.Scan(&metric, &count); err != nil {
			return nil, fmt.Errorf("postgres: scan usage: %w", err)
		}
		out[metric] = count
	}
	return out, rows.Err()
}

func statusArg(s *domain.EditStatus) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func mapNoRows(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("postgres: %s: %w", op, err)
}
