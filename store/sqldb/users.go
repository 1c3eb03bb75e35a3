package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/georgysavva/scany/v2/sqlscan"

	"github.com/warp/fuel-engine/fuel"
)

// =============================================================================
// USER STORE (fuel.UserStore interface)
// =============================================================================

type userRow struct {
	ID           int64          `db:"id"`
	Username     string         `db:"username"`
	Email        sql.NullString `db:"email"`
	PasswordHash string         `db:"password_hash"`
	Role         string         `db:"role"`
	CreatedAt    string         `db:"created_at"`
}

func (r userRow) toUser() fuel.User {
	return fuel.User{
		ID:           fuel.UserID(r.ID),
		Username:     r.Username,
		Email:        r.Email.String,
		PasswordHash: r.PasswordHash,
		Role:         fuel.Role(r.Role),
		CreatedAt:    parseTime(r.CreatedAt),
	}
}

const selectUsers = "SELECT id, username, email, password_hash, role, created_at FROM users"

func (s *Store) selectUser(ctx context.Context, where string, args ...any) (*fuel.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rows []userRow
	if err := sqlscan.Select(ctx, s.db, &rows, s.dialect.rebind(selectUsers+where+" ORDER BY id LIMIT 1"), args...); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	u := rows[0].toUser()
	return &u, nil
}

func (s *Store) InsertUser(ctx context.Context, u fuel.User) (fuel.UserID, error) {
	role := u.Role
	if role == "" {
		role = fuel.RoleUser
	}
	id, err := s.insert(ctx, `
		INSERT INTO users (username, email, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		u.Username,
		nullString(strings.ToLower(u.Email)),
		u.PasswordHash,
		string(role),
		s.dialect.timeArg(s.now()),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fuel.ErrDuplicateUser
		}
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}
	return fuel.UserID(id), nil
}

// GetUserByLogin matches username or email, case-insensitively.
func (s *Store) GetUserByLogin(ctx context.Context, login string) (*fuel.User, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	return s.selectUser(ctx, " WHERE lower(username) = ? OR email = ?", login, login)
}

func (s *Store) GetUser(ctx context.Context, id fuel.UserID) (*fuel.User, error) {
	return s.selectUser(ctx, " WHERE id = ?", int64(id))
}
