package web

import (
	"net/http"

	"github.com/JonMunkholm/attrmatrix/internal/logging"
	mw "github.com/JonMunkholm/attrmatrix/internal/web/middleware"
)

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Success  bool   `json:"success"`
	Token    string `json:"token"`
	Username string `json:"username"`
}

// handleLogin exchanges the administrator password for a token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		badBody(w, err, "Invalid request body")
		return
	}

	token, err := s.auth.Login(req.Password)
	if err != nil {
		logging.FromContext(r.Context()).Warn("login failed", "ip", mw.ClientIP(r), "error", err)
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	logging.FromContext(r.Context()).Info("login succeeded", "ip", mw.ClientIP(r), "username", s.auth.Username())
	writeJSON(w, loginResponse{Success: true, Token: token, Username: s.auth.Username()})
}

// handleVerify confirms the bearer token; RequireAuth has already checked it.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"authenticated": true,
		"username":      logging.UsernameFromContext(r.Context()),
	})
}
