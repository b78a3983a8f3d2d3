package api

import (
	"net/http"
	"strconv"

	"github.com/kestrelhealth/radpoint/pkg/httputil"
	"github.com/kestrelhealth/radpoint/pkg/middleware"
	"github.com/kestrelhealth/radpoint/pkg/radiology"
)

func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	var filter radiology.ReportFilter
	if raw := httputil.ParseQueryString(r, "study_id", ""); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httputil.WriteBadRequest(w, "study_id must be an integer")
			return
		}
		filter.StudyID = id
	}
	if raw := httputil.ParseQueryString(r, "user_id", ""); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httputil.WriteBadRequest(w, "user_id must be an integer")
			return
		}
		filter.UserID = id
	}
	if raw := httputil.ParseQueryString(r, "status", ""); raw != "" {
		status := radiology.ReportStatus(raw)
		if !status.Valid() {
			httputil.WriteBadRequest(w, "invalid report status: "+raw)
			return
		}
		filter.Status = status
	}

	writePage(s, w, r, "reports", s.radiology.ReportPageQuery(filter))
}

type createReportRequest struct {
	StudyID    int64  `json:"studyId"`
	TemplateID int64  `json:"templateId"`
	PromptText string `json:"promptText"`
	ResultText string `json:"resultText"`
}

func (s *Server) createReport(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	// the author is always the caller, never a request field
	report := &radiology.Report{
		StudyID:    req.StudyID,
		TemplateID: req.TemplateID,
		UserID:     middleware.GetIdentity(r).UserID(),
		PromptText: req.PromptText,
		ResultText: req.ResultText,
	}
	if err := s.radiology.CreateReport(r.Context(), report); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.ReportsTotal.WithLabelValues(string(report.Status)).Inc()
	}
	httputil.WriteCreated(w, report)
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	report, err := s.radiology.GetReport(r.Context(), id)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, report)
}

type updateReportRequest struct {
	PromptText *string                 `json:"promptText"`
	ResultText *string                 `json:"resultText"`
	Status     *radiology.ReportStatus `json:"status"`
}

func (s *Server) updateReport(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req updateReportRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	var oldStatus radiology.ReportStatus
	if s.metrics != nil && req.Status != nil {
		if current, err := s.radiology.GetReport(r.Context(), id); err == nil {
			oldStatus = current.Status
		}
	}

	report, err := s.radiology.UpdateReport(r.Context(), id, radiology.ReportUpdate{
		PromptText: req.PromptText,
		ResultText: req.ResultText,
		Status:     req.Status,
	})
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}

	if s.metrics != nil && oldStatus != "" && report.Status != oldStatus {
		s.metrics.ReportsTotal.WithLabelValues(string(oldStatus)).Dec()
		s.metrics.ReportsTotal.WithLabelValues(string(report.Status)).Inc()
	}
	httputil.WriteSuccess(w, report)
}

func (s *Server) deleteReport(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var status radiology.ReportStatus
	if s.metrics != nil {
		if current, err := s.radiology.GetReport(r.Context(), id); err == nil {
			status = current.Status
		}
	}

	if err := s.radiology.DeleteReport(r.Context(), id); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	if s.metrics != nil && status != "" {
		s.metrics.ReportsTotal.WithLabelValues(string(status)).Dec()
	}
	httputil.WriteNoContent(w)
}

func (s *Server) listReportHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	history, err := s.radiology.ListHistory(r.Context(), id)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, history)
}

func (s *Server) listReportEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	events, err := s.radiology.ListEvents(r.Context(), id)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteSuccess(w, events)
}
