// Package httpapi serves the standalone authority's HTTP surface: token
// issuing, the WebSocket endpoint and a health probe.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"kitchencoop/internal/auth"
	"kitchencoop/internal/domain"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

// Issuer mints participant tokens.
type Issuer interface {
	Issue(participantID, name string) (string, auth.Identity, error)
}

// Viewer exposes the authoritative game read-only.
type Viewer interface {
	View(fn func(g *domain.Game))
}

// Counter reports open sockets.
type Counter interface {
	Count() int
}

// Deps wires the routes.
type Deps struct {
	Issuer  Issuer
	Sockets http.Handler
	Game    Viewer
	Conns   Counter
}

type tokenRequest struct {
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
}

type tokenResponse struct {
	Token         string `json:"token"`
	ParticipantID string `json:"participant_id"`
	SessionID     string `json:"session_id"`
}

type healthResponse struct {
	Status       string       `json:"status"`
	Phase        domain.Phase `json:"phase"`
	Participants int          `json:"participants"`
	Connections  int          `json:"connections"`
}

// NewHandler builds the mux behind a permissive CORS policy.
func NewHandler(d Deps) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", d.handleToken)
	mux.Handle("GET /ws", d.Sockets)
	mux.HandleFunc("GET /health", d.handleHealth)

	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(mux)
}

func (d Deps) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<12)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, id, err := d.Issuer.Issue(req.ParticipantID, req.Name)
	switch {
	case errors.Is(err, auth.ErrNoSecret):
		log.Error().Err(err).Msg("token issuer is not configured")
		writeError(w, http.StatusInternalServerError, "token issuing unavailable")
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, ParticipantID: id.ParticipantID, SessionID: id.SessionID})
}

func (d Deps) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	d.Game.View(func(g *domain.Game) {
		resp.Phase = g.Session.Phase
		resp.Participants = len(g.Roster.Connected())
	})
	if d.Conns != nil {
		resp.Connections = d.Conns.Count()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
