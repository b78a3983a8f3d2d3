package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kestrelhealth/radpoint/pkg/apperr"
	"github.com/kestrelhealth/radpoint/pkg/auth"
	"github.com/kestrelhealth/radpoint/pkg/httputil"
	"github.com/kestrelhealth/radpoint/pkg/middleware"
	"github.com/kestrelhealth/radpoint/pkg/orgs"
	"github.com/kestrelhealth/radpoint/pkg/pagination"
	"github.com/kestrelhealth/radpoint/pkg/rbac"
)

type organizationRequest struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phoneNumber"`
}

// listOrganizations pages through organizations. With ?role= the listing is
// scoped to organizations where the caller holds that role.
func (s *Server) listOrganizations(w http.ResponseWriter, r *http.Request) {
	q := s.orgs.PageQuery()

	if raw := httputil.ParseQueryString(r, "role", ""); raw != "" {
		role := rbac.Role(raw)
		if !role.Valid() {
			httputil.WriteAppError(w, apperr.New(apperr.KindInvalidArgument, "invalid role: %s", raw))
			return
		}
		ids, err := s.evaluator.OrganizationsWithRole(r.Context(), middleware.GetIdentity(r).UserID(), role)
		if err != nil {
			httputil.WriteAppError(w, err)
			return
		}
		if len(ids) == 0 {
			httputil.WriteSuccess(w, &pagination.Connection[*orgs.Organization]{
				Edges: []pagination.Edge[*orgs.Organization]{},
			})
			return
		}
		q.Filters = append(q.Filters, idFilter(ids))
	}

	writePage(s, w, r, "organizations", q)
}

// idFilter builds an IN predicate over the key column.
func idFilter(ids []int64) pagination.Filter {
	marks := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return pagination.Filter{
		Expr: "id IN (" + strings.Join(marks, ", ") + ")",
		Args: args,
	}
}

func (s *Server) createOrganization(w http.ResponseWriter, r *http.Request) {
	var req organizationRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	org := &orgs.Organization{
		Name:            req.Name,
		Address:         req.Address,
		PhoneNumber:     req.PhoneNumber,
		CreatedByUserID: middleware.GetIdentity(r).UserID(),
	}
	if err := s.orgs.CreateOrganization(r.Context(), org); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteCreated(w, org)
}

func (s *Server) getOrganization(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "org_id")
	if !ok {
		return
	}

	org, err := s.orgs.GetOrganization(r.Context(), id)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, org)
}

func (s *Server) updateOrganization(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "org_id")
	if !ok {
		return
	}

	current, err := s.orgs.GetOrganization(r.Context(), id)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}

	var req organizationRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	current.Name = req.Name
	current.Address = req.Address
	current.PhoneNumber = req.PhoneNumber
	if err := s.orgs.UpdateOrganization(r.Context(), current); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, current)
}

func (s *Server) deleteOrganization(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "org_id")
	if !ok {
		return
	}

	if err := s.orgs.DeleteOrganization(r.Context(), id); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "org_id")
	if !ok {
		return
	}

	role := rbac.Role(httputil.ParseQueryString(r, "role", ""))
	members, err := s.orgs.ListMembers(r.Context(), id, role)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, members)
}

type inviteRadiologistRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
}

type inviteRadiologistResponse struct {
	User         *auth.User `json:"user"`
	TempPassword string     `json:"tempPassword"`
}

func (s *Server) inviteRadiologist(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathInt64OrError(w, r, "org_id")
	if !ok {
		return
	}

	var req inviteRadiologistRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	created, err := s.orgs.InviteRadiologist(r.Context(), s.users, orgID, &auth.User{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.ActiveUsersTotal.Inc()
	}
	httputil.WriteCreated(w, inviteRadiologistResponse{User: created, TempPassword: created.TempPassword})
}

func (s *Server) removeRadiologist(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathInt64OrError(w, r, "org_id")
	if !ok {
		return
	}
	userID, ok := httputil.ParsePathInt64OrError(w, r, "user_id")
	if !ok {
		return
	}

	if err := s.orgs.RemoveMember(r.Context(), userID, orgID, rbac.RoleRadiologist); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

const maxLogoBytes = 5 << 20

func logoKey(orgID int64) string {
	return fmt.Sprintf("logos/%d", orgID)
}

func (s *Server) uploadLogo(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathInt64OrError(w, r, "org_id")
	if !ok {
		return
	}

	org, err := s.orgs.GetOrganization(r.Context(), orgID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := logoKey(orgID)
	body := http.MaxBytesReader(w, r.Body, maxLogoBytes)
	if err := s.blobs.Put(r.Context(), key, body, contentType); err != nil {
		httputil.WriteAppError(w, err)
		return
	}

	org.Logo = key
	if err := s.orgs.UpdateOrganization(r.Context(), org); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, org)
}

func (s *Server) getLogo(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathInt64OrError(w, r, "org_id")
	if !ok {
		return
	}

	body, contentType, err := s.blobs.Get(r.Context(), logoKey(orgID))
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", contentType)
	if _, err := io.Copy(w, body); err != nil {
		s.logger.WithError(err).Warn("Failed to stream logo")
	}
}
