package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/courtbook/courtbook/internal/auth"
	"github.com/courtbook/courtbook/internal/metrics"
	"github.com/courtbook/courtbook/internal/user"
)

// UserAccounts is the user store surface the auth handlers need. It exists to
// allow testing without a real database.
type UserAccounts interface {
	Create(ctx context.Context, in user.CreateUserInput) (*user.User, error)
	GetByName(ctx context.Context, name string) (*user.User, error)
	NameOrEmailTaken(ctx context.Context, name, email string) (bool, error)
	Count(ctx context.Context) (int64, error)
	CreateSession(ctx context.Context, userID string) (string, *user.LoginSession, error)
	DeleteSession(ctx context.Context, token string) error
}

// authHandler groups the registration and login HTTP handlers.
type authHandler struct {
	users   UserAccounts
	metrics *metrics.Metrics
}

func newAuthHandler(users UserAccounts, m *metrics.Metrics) *authHandler {
	return &authHandler{users: users, metrics: m}
}

type userResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

// Register handles POST /api/v1/auth/register. The first account ever
// registered becomes the admin.
func (h *authHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "name, email and password are required")
		return
	}

	taken, err := h.users.NameOrEmailTaken(r.Context(), req.Name, req.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to check existing users")
		return
	}
	if taken {
		writeError(w, http.StatusBadRequest, "conflict", "name or email already registered")
		return
	}

	count, err := h.users.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to count users")
		return
	}

	u, err := h.users.Create(r.Context(), user.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		IsAdmin:  count == 0,
	})
	if err != nil {
		// A concurrent registration can win the race between the
		// availability check and the insert; the unique constraint is the
		// authority either way.
		if errors.Is(err, user.ErrDuplicate) {
			writeError(w, http.StatusBadRequest, "conflict", "name or email already registered")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create user")
		return
	}

	auditLog(r, "register", "user", u.ID, "user_name", u.Name, "is_admin", u.IsAdmin)
	writeJSON(w, http.StatusCreated, userResponse{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		IsAdmin: u.IsAdmin,
	})
}

// Login handles POST /api/v1/auth/login.
func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if req.Name == "" || req.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "name and password are required")
		return
	}

	// Unknown name and wrong password produce the same response.
	u, err := h.users.GetByName(r.Context(), req.Name)
	if err != nil || !user.CheckPassword(u, req.Password) {
		if h.metrics != nil {
			h.metrics.IncAuthFailure("login")
		}
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid name or password")
		return
	}

	token, _, err := h.users.CreateSession(r.Context(), u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create session")
		return
	}

	if h.metrics != nil {
		h.metrics.IncAuthSuccess("login")
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user": userResponse{
			ID:      u.ID,
			Name:    u.Name,
			Email:   u.Email,
			IsAdmin: u.IsAdmin,
		},
	})
}

// Logout handles POST /api/v1/auth/logout.
func (h *authHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := auth.ExtractBearerToken(r)
	if token != "" {
		_ = h.users.DeleteSession(r.Context(), token)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/v1/auth/me.
func (h *authHandler) Me(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	writeJSON(w, http.StatusOK, userResponse{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		IsAdmin: u.IsAdmin,
	})
}
