// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package memoryapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/pdiddy/paper-relay/internal/dispatch"
	"github.com/pdiddy/paper-relay/internal/history"
	"github.com/pdiddy/paper-relay/internal/logging"
	"github.com/pdiddy/paper-relay/internal/reconcile"
	"github.com/pdiddy/paper-relay/internal/sanitize"
)

// logRequest is the body of POST /log_search. query and search_query
// accept any JSON value; the workflow sometimes sends objects or null.
type logRequest struct {
	Query       json.RawMessage `json:"query" validate:"required"`
	SearchQuery json.RawMessage `json:"search_query" validate:"required"`
	TopResults  json.RawMessage `json:"top_results"`
	RequestID   string          `json:"request_id" validate:"omitempty,max=128,printascii"`
}

type logResponse struct {
	Status    string `json:"status"`
	ID        int64  `json:"id"`
	Corrupted bool   `json:"corrupted,omitempty"`
}

type searchRequest struct {
	Query string `json:"query" validate:"required,max=2000"`
}

type searchResponse struct {
	reconcile.Outcome
	View *sanitize.RecordView `json:"view,omitempty"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogSearch(w http.ResponseWriter, r *http.Request) {
	var req logRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}

	results, err := normalizeResults(req.TopResults)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}

	query := sanitize.FromRaw(req.Query)
	keywords := sanitize.FromRaw(req.SearchQuery)

	id, err := s.store.Insert(r.Context(), history.Entry{
		Query:       query.Raw,
		SearchQuery: keywords.Raw,
		TopResults:  results,
		RequestID:   req.RequestID,
		CreatedAt:   s.now().UTC(),
	})
	if err != nil {
		status := http.StatusInternalServerError
		if history.IsBusy(err) {
			status = http.StatusServiceUnavailable
		}
		s.fail(w, r, status, fmt.Errorf("logging search: %w", err))
		return
	}

	corrupted := query.Corrupt || keywords.Corrupt
	log := logging.C(r.Context())
	evt := log.Info()
	if corrupted {
		evt = log.Warn()
	}
	evt.Int64("id", id).Str("request_id", req.RequestID).Bool("corrupted", corrupted).Msg("logged search")

	writeJSON(w, http.StatusOK, logResponse{Status: "ok", ID: id, Corrupted: corrupted})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistoryLimit {
			s.fail(w, r, http.StatusBadRequest, fmt.Errorf("limit must be an integer between 1 and %d", maxHistoryLimit))
			return
		}
		limit = n
	}

	records, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}

	out, err := s.search.Submit(r.Context(), req.Query)
	if err != nil {
		s.fail(w, r, searchStatus(err), err)
		return
	}

	resp := searchResponse{Outcome: out}
	if out.Matched() {
		view := sanitize.Inspect(*out.Record)
		resp.View = &view
	}
	writeJSON(w, http.StatusOK, resp)
}

// searchStatus maps a reconciliation error to an HTTP status.
func searchStatus(err error) int {
	switch {
	case errors.Is(err, reconcile.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, reconcile.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, reconcile.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case dispatch.IsDispatchError(err):
		return http.StatusBadGateway
	default:
		return http.StatusServiceUnavailable
	}
}

// normalizeResults checks that top_results is a JSON array. A missing or
// null value is stored as an empty list.
func normalizeResults(raw json.RawMessage) (json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return json.RawMessage("[]"), nil
	}
	if raw[0] != '[' {
		return nil, errors.New("top_results must be a JSON array")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, fmt.Errorf("top_results: %w", err)
	}
	return buf.Bytes(), nil
}

// decode reads a JSON body into v and validates it.
func decode(r *http.Request, v any) error {
	body := io.LimitReader(r.Body, maxRequestBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("decoding request body: %w", err)
	}
	return validateStruct(v)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	log := logging.C(r.Context())
	evt := log.Warn()
	if status >= http.StatusInternalServerError {
		evt = log.Error()
	}
	evt.Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
	writeJSON(w, status, errorResponse{Status: "error", Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
