package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ErrUserNotFound is returned by mutations that target a missing user.
var ErrUserNotFound = errors.New("user not found")

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         string
	TokenVersion int
	ImageURL     string
	CreatedAt    time.Time
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const userColumns = `id, username, email, password_hash, role, token_version, image_url, created_at`

func (r *Repo) CreateUser(ctx context.Context, u User) error {
	if u.Role == "" {
		u.Role = RoleUser
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, role)
		VALUES (?, ?, ?, ?, ?)
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.Role)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.TokenVersion, &u.ImageURL, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) getOne(ctx context.Context, what, where string, arg any) (*User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by %s: %w", what, err)
	}
	return u, nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, "email", `LOWER(email) = ?`, strings.TrimSpace(strings.ToLower(email)))
}

func (r *Repo) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getOne(ctx, "username", `username = ?`, strings.TrimSpace(username))
}

func (r *Repo) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getOne(ctx, "id", `id = ?`, id)
}

// GetTokenVersion returns -1 for an unknown user so that no token matches.
func (r *Repo) GetTokenVersion(ctx context.Context, id string) (int, error) {
	var version int
	err := r.DB.QueryRowContext(ctx, `SELECT token_version FROM users WHERE id = ?`, id).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return -1, nil
		}
		return 0, fmt.Errorf("get token version: %w", err)
	}
	return version, nil
}

func (r *Repo) UpdatePasswordAndBumpTokenVersion(ctx context.Context, id string, passwordHash string) error {
	return r.execOne(ctx, "update password", `
		UPDATE users
		SET password_hash = ?, token_version = token_version + 1
		WHERE id = ?
	`, passwordHash, id)
}

func (r *Repo) BumpTokenVersion(ctx context.Context, id string) error {
	return r.execOne(ctx, "bump token version", `
		UPDATE users SET token_version = token_version + 1 WHERE id = ?
	`, id)
}

// SetRole changes a user's role and revokes their outstanding tokens so the
// new role is picked up on next login.
func (r *Repo) SetRole(ctx context.Context, email, role string) error {
	if role != RoleUser && role != RoleAdmin {
		return fmt.Errorf("set role: unknown role %q", role)
	}
	return r.execOne(ctx, "set role", `
		UPDATE users
		SET role = ?, token_version = token_version + 1
		WHERE LOWER(email) = ?
	`, role, strings.TrimSpace(strings.ToLower(email)))
}

// ListUsers pages through users newest first. An empty role lists everyone.
func (r *Repo) ListUsers(ctx context.Context, role string, limit, offset int) ([]User, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	where, args := `1 = 1`, []any{}
	if role != "" {
		where, args = `role = ?`, append(args, role)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE `+where+`
		ORDER BY created_at DESC, username
		LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows err: %w", err)
	}
	return out, total, nil
}

// UpdateProfile sets whichever of username and imageURL is non-nil.
func (r *Repo) UpdateProfile(ctx context.Context, id string, username, imageURL *string) error {
	return r.execOne(ctx, "update profile", `
		UPDATE users
		SET username = COALESCE(?, username), image_url = COALESCE(?, image_url)
		WHERE id = ?
	`, username, imageURL, id)
}

// DeleteUser removes a plain user and returns the animes they had viewed,
// whose view counts are now stale. Admins are reported as not found.
func (r *Repo) DeleteUser(ctx context.Context, id string) ([]string, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete user: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT anime_id FROM anime_views WHERE user_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("load viewed animes: %w", err)
	}
	var viewed []string
	for rows.Next() {
		var animeID string
		if err := rows.Scan(&animeID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan viewed anime: %w", err)
		}
		viewed = append(viewed, animeID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ? AND role = ?`, id, RoleUser)
	if err != nil {
		return nil, fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("delete user: %w", ErrUserNotFound)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete user: %w", err)
	}
	return viewed, nil
}

func (r *Repo) execOne(ctx context.Context, what, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", what, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", what, ErrUserNotFound)
	}
	return nil
}
