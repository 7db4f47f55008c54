package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/edgarlab/filing-pipeline/internal/config"
	"github.com/edgarlab/filing-pipeline/internal/core/ports"
)

type Router struct {
	cfg      config.Config
	ingestUC ports.FilingIngestor
	repo     ports.FilingRepository
	store    ports.RecordStore
}

func NewRouter(
	cfg config.Config,
	ingestUC ports.FilingIngestor,
	repo ports.FilingRepository,
	store ports.RecordStore,
) *Router {
	return &Router{
		cfg:      cfg,
		ingestUC: ingestUC,
		repo:     repo,
		store:    store,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/filings", rt.uploadFiling)
	mux.HandleFunc("/v1/filings/", rt.getFilingByID)
	mux.HandleFunc("/v1/records/", rt.getRecordByID)
	mux.HandleFunc("/v1/records", rt.findRecordsByHash)

	var handler http.Handler = mux
	if rt.cfg.APIMaxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, 100*time.Millisecond)
	}
	if rt.cfg.APIRateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadFiling(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	filing, err := rt.ingestUC.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, filing)
}

func (rt *Router) getFilingByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/filings/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "filing id is required"})
		return
	}

	filing, err := rt.repo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, filing)
}

func (rt *Router) getRecordByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/records/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "record id is required"})
		return
	}

	record, err := rt.store.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (rt *Router) findRecordsByHash(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	hash := strings.TrimSpace(r.URL.Query().Get("content_hash"))
	if hash == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "content_hash query parameter is required"})
		return
	}

	records, err := rt.store.FindByHash(r.Context(), hash)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
