package api

import (
	"net/http"

	"github.com/kestrelhealth/radpoint/pkg/auth"
	"github.com/kestrelhealth/radpoint/pkg/httputil"
)

type createUserRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	writePage(s, w, r, "users", s.users.PageQuery())
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user := &auth.User{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
	}
	if err := s.users.CreateUser(r.Context(), user, req.Password); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.ActiveUsersTotal.Inc()
	}
	httputil.WriteCreated(w, user)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	user, err := s.users.GetUser(r.Context(), id)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req createUserRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user := &auth.User{
		ID:          id,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
	}
	if err := s.users.UpdateUser(r.Context(), user); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.users.DeleteUser(r.Context(), id); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.ActiveUsersTotal.Dec()
	}
	httputil.WriteNoContent(w)
}

func (s *Server) getTempPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	temp, err := s.users.TempPassword(r.Context(), id)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]string{"tempPassword": temp})
}

func (s *Server) forcePasswordReset(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	temp, err := s.users.ForcePasswordReset(r.Context(), id)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]string{"tempPassword": temp})
}
