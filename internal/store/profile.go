package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ultramynd/notesync/internal/types"
)

// UpsertProfile creates the owner's profile row or updates it. Nil fields
// keep their stored value.
func (s *SQLStore) UpsertProfile(ctx context.Context, p types.Profile) (*types.User, error) {
	now := s.dialect.timeArg(s.nowUTC())
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO users (user_id, name, bio, email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			name = COALESCE(excluded.name, users.name),
			bio = COALESCE(excluded.bio, users.bio),
			email = COALESCE(excluded.email, users.email),
			updated_at = excluded.updated_at
	`), p.OwnerID, nullable(p.Name), nullable(p.Bio), nullable(p.Email), now, now)
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	return s.GetUser(ctx, p.OwnerID)
}

// UpdateProfile changes the supplied fields of an existing profile.
// Returns ErrNotFound when the owner has no profile row.
func (s *SQLStore) UpdateProfile(ctx context.Context, p types.Profile) (*types.User, error) {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE users SET
			name = COALESCE(?, name),
			bio = COALESCE(?, bio),
			email = COALESCE(?, email),
			updated_at = ?
		WHERE user_id = ?
	`), nullable(p.Name), nullable(p.Bio), nullable(p.Email), s.dialect.timeArg(s.nowUTC()), p.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update profile: rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.GetUser(ctx, p.OwnerID)
}

// GetUser returns the owner's profile or ErrNotFound.
func (s *SQLStore) GetUser(ctx context.Context, ownerID string) (*types.User, error) {
	var u types.User
	var name, bio, email sql.NullString
	var created, updated dbTime

	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT user_id, name, bio, email, created_at, updated_at
		FROM users WHERE user_id = ?
	`), ownerID).Scan(&u.OwnerID, &name, &bio, &email, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	u.Name = name.String
	u.Bio = bio.String
	u.Email = email.String
	u.CreatedAt = created.Time
	u.UpdatedAt = updated.Time
	return &u, nil
}

func nullable(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
