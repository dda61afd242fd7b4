package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/health-risk-dashboard/internal/auth"
	"github.com/couchcryptid/health-risk-dashboard/internal/domain"
)

const (
	errUnknownType = "unknown type param"
	maxLoginBytes  = 4 << 10
)

type dataResponse struct {
	Data any `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

type uploadResponse struct {
	Kind    domain.Kind `json:"kind"`
	Rows    int         `json:"rows"`
	EventID string      `json:"event_id"`
}

// handleData serves GET /api/data?type=predictions|forecasts. A missing type
// means predictions; an unknown type is rejected before any file is read.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	typ := r.URL.Query().Get("type")
	if typ == "" {
		typ = string(domain.KindPredictions)
	}

	kind, err := domain.ParseKind(typ)
	if err != nil {
		s.metrics.DataRequests.WithLabelValues("unknown", "bad_request").Inc()
		writeError(w, http.StatusBadRequest, errUnknownType)
		return
	}

	records, err := s.service.Records(r.Context(), kind)
	if err != nil {
		s.metrics.DataRequests.WithLabelValues(string(kind), "error").Inc()
		s.logger.Error("load dataset", "kind", kind, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.metrics.DataRequests.WithLabelValues(string(kind), "ok").Inc()
	writeJSON(w, http.StatusOK, dataResponse{Data: records})
}

// handleSummary serves GET /api/summary?city=&year=.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.SummaryFilter{City: q.Get("city")}
	if y := q.Get("year"); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			writeError(w, http.StatusBadRequest, "year must be an integer")
			return
		}
		filter.Year = &year
	}

	summary, err := s.service.Summary(r.Context(), filter)
	if err != nil {
		s.logger.Error("summarize datasets", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: summary})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		writeError(w, http.StatusServiceUnavailable, "admin is not configured")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid login request")
		return
	}

	token, err := s.auth.Login(req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		s.metrics.AdminLogins.WithLabelValues("failure").Inc()
		s.logger.Warn("admin login rejected", "remote_addr", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("issue admin token", "error", err)
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}

	s.metrics.AdminLogins.WithLabelValues("success").Inc()
	s.logger.Info("admin login", "username", req.Username)
	writeJSON(w, http.StatusOK, token)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Username:  claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	})
}

// handleUpload replaces one dataset with the CSV in multipart field "file".
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	if r.ContentLength > s.maxUpload {
		writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	file, _, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "missing multipart field \"file\"")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}

	event, err := s.service.Replace(r.Context(), kind, data)
	if errors.Is(err, domain.ErrMalformedCSV) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.logger.Error("replace dataset", "kind", kind, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{Kind: kind, Rows: event.Rows, EventID: event.ID})
}

// writeJSON writes v as the response body. API responses are never cached.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck,gosec // client may have gone away
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
