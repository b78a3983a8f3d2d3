package api

import (
	"net/http"

	"github.com/kestrelhealth/radpoint/pkg/httputil"
	"github.com/kestrelhealth/radpoint/pkg/middleware"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Password, "password") {
		return
	}

	payload, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, payload)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	identity := middleware.GetIdentity(r)
	if err := s.auth.ChangePassword(r.Context(), identity.UserID(), req.CurrentPassword, req.NewPassword); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
