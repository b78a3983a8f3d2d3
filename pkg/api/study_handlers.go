package api

import (
	"net/http"

	"github.com/kestrelhealth/radpoint/pkg/httputil"
	"github.com/kestrelhealth/radpoint/pkg/radiology"
)

type studyRequest struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
}

func (s *Server) listStudies(w http.ResponseWriter, r *http.Request) {
	filter := radiology.StudyFilter{
		Name:     httputil.ParseQueryString(r, "name", ""),
		Category: httputil.ParseQueryString(r, "category", ""),
	}
	writePage(s, w, r, "studies", s.radiology.StudyPageQuery(filter))
}

func (s *Server) createStudy(w http.ResponseWriter, r *http.Request) {
	var req studyRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	study := &radiology.Study{Name: req.Name, Categories: req.Categories}
	if err := s.radiology.CreateStudy(r.Context(), study); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteCreated(w, study)
}

func (s *Server) getStudy(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	study, err := s.radiology.GetStudy(r.Context(), id)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, study)
}

func (s *Server) updateStudy(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req studyRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	study := &radiology.Study{ID: id, Name: req.Name, Categories: req.Categories}
	if err := s.radiology.UpdateStudy(r.Context(), study); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, study)
}

func (s *Server) deleteStudy(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.radiology.DeleteStudy(r.Context(), id); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	studyID, ok := httputil.ParsePathInt64OrError(w, r, "study_id")
	if !ok {
		return
	}

	templates, err := s.radiology.ListTemplates(r.Context(), studyID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, templates)
}

type templateRequest struct {
	SectionNames []string `json:"sectionNames"`
}

func (s *Server) createTemplate(w http.ResponseWriter, r *http.Request) {
	studyID, ok := httputil.ParsePathInt64OrError(w, r, "study_id")
	if !ok {
		return
	}

	var req templateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if _, err := s.radiology.GetStudy(r.Context(), studyID); err != nil {
		httputil.WriteAppError(w, err)
		return
	}

	tpl := &radiology.StudyTemplate{StudyID: studyID, SectionNames: req.SectionNames}
	if err := s.radiology.CreateTemplate(r.Context(), tpl); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteCreated(w, tpl)
}

func (s *Server) getTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	tpl, err := s.radiology.GetTemplate(r.Context(), id)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, tpl)
}
