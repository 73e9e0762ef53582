package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/courtbook/courtbook/internal/mailer"
)

// MailConfigStore is the mail configuration surface the admin handlers need.
type MailConfigStore interface {
	Get(ctx context.Context) (*mailer.Config, error)
	Put(ctx context.Context, cfg mailer.Config) error
}

// configHandler serves the admin-only mail configuration endpoints. Routes
// using it must sit behind the admin middleware.
type configHandler struct {
	store MailConfigStore
}

func newConfigHandler(store MailConfigStore) *configHandler {
	return &configHandler{store: store}
}

type mailConfigResponse struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
}

// Get handles GET /api/v1/admin/mailconfig. The password is never returned.
func (h *configHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.store.Get(r.Context())
	if err != nil {
		if errors.Is(err, mailer.ErrNotConfigured) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"configured": false})
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load mail configuration")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"configured": true,
		"config": mailConfigResponse{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Username: cfg.Username,
		},
	})
}

// Put handles PUT /api/v1/admin/mailconfig: insert on first save, afterwards
// replace every field unconditionally.
func (h *configHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Host     string `json:"host"`
		Port     int    `json:"port"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if strings.TrimSpace(req.Host) == "" || req.Port < 1 || req.Port > 65535 ||
		req.Username == "" || req.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error",
			"host, port, username and password are required")
		return
	}

	err := h.store.Put(r.Context(), mailer.Config{
		Host:     req.Host,
		Port:     req.Port,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to save mail configuration")
		return
	}

	auditLog(r, "update", "mail_config", "1", "host", req.Host, "port", req.Port)
	writeJSON(w, http.StatusOK, map[string]interface{}{"updated": true})
}
