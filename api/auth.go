package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/fuel-engine/auth"
	"github.com/warp/fuel-engine/fuel"
)

// =============================================================================
// AUTH HANDLERS
// =============================================================================

func validateRegistration(req RegisterRequest) error {
	var errs fuel.ValidationErrors
	if len(strings.TrimSpace(req.Username)) < 3 {
		errs = append(errs, &fuel.ValidationError{Field: "username", Message: "Username must be at least 3 characters"})
	}
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			errs = append(errs, &fuel.ValidationError{Field: "email", Message: "Please provide a valid email"})
		}
	}
	if len(req.Password) < auth.MinPasswordLength {
		errs = append(errs, &fuel.ValidationError{Field: "password", Message: fmt.Sprintf("Password must be at least %d characters", auth.MinPasswordLength)})
	}
	return errs.OrNil()
}

func (h *Handler) issue(w http.ResponseWriter, r *http.Request, u fuel.User, status int, message string) {
	token, err := auth.IssueToken(h.secret, u, h.tokenTTL, time.Now())
	if err != nil {
		h.fail(w, r, err, "Failed to issue token")
		return
	}
	writeJSON(w, status, AuthResponse{Message: message, Token: token, User: toUserDTO(u)})
}

// Register creates a user account with the default role.
// POST /api/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validateRegistration(req); err != nil {
		h.fail(w, r, err, "Validation failed")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.fail(w, r, err, "Failed to register user")
		return
	}
	u := fuel.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Role:         fuel.RoleUser,
	}
	id, err := h.Store.InsertUser(r.Context(), u)
	if errors.Is(err, fuel.ErrDuplicateUser) {
		h.fail(w, r, err, "User already exists with this email or username")
		return
	}
	if err != nil {
		h.fail(w, r, err, "Failed to register user")
		return
	}
	u.ID = id
	h.issue(w, r, u, http.StatusCreated, "User created successfully")
}

// Login exchanges credentials for a token. The login may be an email or a
// username.
// POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	login := req.Email
	if login == "" {
		login = req.Username
	}
	var errs fuel.ValidationErrors
	if strings.TrimSpace(login) == "" {
		errs = append(errs, &fuel.ValidationError{Field: "email", Message: "Email or username is required"})
	}
	if req.Password == "" {
		errs = append(errs, &fuel.ValidationError{Field: "password", Message: "Password is required"})
	}
	if err := errs.OrNil(); err != nil {
		h.fail(w, r, err, "Validation failed")
		return
	}

	u, err := h.Store.GetUserByLogin(r.Context(), login)
	if err != nil {
		h.fail(w, r, err, "Failed to log in")
		return
	}
	if u == nil || !auth.CheckPassword(u.PasswordHash, req.Password) {
		h.fail(w, r, fuel.ErrInvalidCredentials, "Invalid email or password")
		return
	}
	h.issue(w, r, *u, http.StatusOK, "Login successful")
}

// Me returns the authenticated account.
// GET /api/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.Store.GetUser(r.Context(), callerOf(r).ID)
	if err != nil {
		h.fail(w, r, err, "Failed to load user")
		return
	}
	if u == nil {
		h.fail(w, r, fuel.ErrUserNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(*u))
}

// =============================================================================
// BOOTSTRAP
// =============================================================================

// EnsureSuperAdmin creates the superadmin account when it does not exist
// yet. An existing account of that name is left untouched.
func EnsureSuperAdmin(ctx context.Context, users fuel.UserStore, username, email, password string, log zerolog.Logger) error {
	existing, err := users.GetUserByLogin(ctx, username)
	if err != nil {
		return fmt.Errorf("look up superadmin: %w", err)
	}
	if existing != nil {
		if existing.Role != fuel.RoleSuperAdmin {
			log.Warn().Str("username", username).Str("role", string(existing.Role)).Msg("superadmin username belongs to a non-superadmin account")
		}
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash superadmin password: %w", err)
	}
	id, err := users.InsertUser(ctx, fuel.User{
		Username:     username,
		Email:        strings.ToLower(email),
		PasswordHash: hash,
		Role:         fuel.RoleSuperAdmin,
	})
	if errors.Is(err, fuel.ErrDuplicateUser) {
		return fmt.Errorf("superadmin email already taken: %w", err)
	}
	if err != nil {
		return fmt.Errorf("create superadmin: %w", err)
	}
	log.Info().Int64("id", int64(id)).Str("username", username).Msg("superadmin created")
	return nil
}
