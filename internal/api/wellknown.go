package api

import "net/http"

// wellKnownManifest is the static JSON manifest for /.well-known/courtbook.json.
const wellKnownManifest = `{
  "name": "Courtbook",
  "description": "Session sign-up and scheduling service",
  "version": "0.1.0",
  "api_base": "/api/v1",
  "auth": {
    "type": "bearer",
    "header": "Authorization"
  },
  "endpoints": {
    "register": "/api/v1/auth/register",
    "login": "/api/v1/auth/login",
    "events": "/api/v1/events",
    "stats": "/api/v1/stats",
    "mail_config": "/api/v1/admin/mailconfig"
  },
  "health": "/health"
}`

// WellKnownHandler returns the static Courtbook well-known manifest.
func WellKnownHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(wellKnownManifest))
}
