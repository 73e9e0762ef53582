package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakeSessions implements SessionLookup over a static token map.
type fakeSessions struct {
	users map[string]*User
}

func (f *fakeSessions) LookupSession(_ context.Context, token string) (*User, error) {
	u, ok := f.users[token]
	if !ok {
		return nil, errors.New("no such session")
	}
	return u, nil
}

func okHandler(t *testing.T, wantUser string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := UserFromContext(r.Context())
		if u == nil {
			t.Error("expected user in context")
		} else if u.Name != wantUser {
			t.Errorf("expected user %q in context, got %q", wantUser, u.Name)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestSessionMiddleware(t *testing.T) {
	sessions := &fakeSessions{users: map[string]*User{
		"good-token": {ID: "u1", Name: "alice"},
	}}

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"valid token", "Bearer good-token", http.StatusOK},
		{"unknown token", "Bearer bad-token", http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good-token", http.StatusUnauthorized},
		{"no token", "Bearer", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := SessionMiddleware(sessions)(okHandler(t, "alice"))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestAdminMiddleware(t *testing.T) {
	sessions := &fakeSessions{users: map[string]*User{
		"admin-token":  {ID: "u1", Name: "alice", IsAdmin: true},
		"member-token": {ID: "u2", Name: "bob"},
	}}

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"admin allowed", "Bearer admin-token", http.StatusOK},
		{"member forbidden", "Bearer member-token", http.StatusForbidden},
		{"unknown token", "Bearer nope", http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := AdminMiddleware(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"standard", "Bearer abc123", "abc123"},
		{"case-insensitive scheme", "bearer abc123", "abc123"},
		{"empty", "", ""},
		{"no scheme", "abc123", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if got := ExtractBearerToken(req); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUserFromContextMissing(t *testing.T) {
	if u := UserFromContext(context.Background()); u != nil {
		t.Errorf("expected nil user from empty context, got %+v", u)
	}
}
