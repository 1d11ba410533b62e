package plugin

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/grafana/grafana-plugin-sdk-go/backend/log"

	"redshift-grafana-plugin/pkg/editor"
	"redshift-grafana-plugin/pkg/models"
	"redshift-grafana-plugin/pkg/suggestions"
	"redshift-grafana-plugin/pkg/templatevars"
)

var errNotConfigured = errors.New("data source is not configured")

func (d *Datasource) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/macros", d.handleMacros)
	r.Post("/suggestions", d.handleSuggestions)
	r.Post("/editor/commit", d.handleCommit)

	r.Route("/schemas", func(r chi.Router) {
		r.Get("/", d.handleSchemas)
		r.Get("/{schema}/tables", d.handleTables)
		r.Get("/{schema}/tables/{table}/columns", d.handleColumns)
	})
	return r
}

type suggestionsRequest struct {
	Variables []templatevars.Variable `json:"variables"`
}

type commitRequest struct {
	Query models.Query `json:"query"`
	Text  string       `json:"text"`
}

type commitResponse struct {
	Events []editor.Event `json:"events"`
}

func (d *Datasource) handleMacros(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, suggestions.Macros())
}

func (d *Datasource) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	var req suggestionsRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			// The template variables are optional; fall back to the macros.
			log.DefaultLogger.FromContext(r.Context()).Debug("Ignoring unreadable suggestions request", "error", err)
			writeJSON(w, http.StatusOK, suggestions.Provide(nil))
			return
		}
	}
	writeJSON(w, http.StatusOK, suggestions.Provide(templatevars.NewStaticRegistry(req.Variables)))
}

func (d *Datasource) handleCommit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rec := &editor.Recorder{}
	d.queryEditor.Open(req.Query, rec).Commit(req.Text)
	writeJSON(w, http.StatusOK, commitResponse{Events: rec.Events()})
}

func (d *Datasource) handleSchemas(w http.ResponseWriter, r *http.Request) {
	if d.schemas == nil {
		writeError(w, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	names, err := d.schemas.Schemas(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (d *Datasource) handleTables(w http.ResponseWriter, r *http.Request) {
	if d.schemas == nil {
		writeError(w, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	names, err := d.schemas.Tables(r.Context(), chi.URLParam(r, "schema"))
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (d *Datasource) handleColumns(w http.ResponseWriter, r *http.Request) {
	if d.schemas == nil {
		writeError(w, http.StatusServiceUnavailable, errNotConfigured)
		return
	}
	cols, err := d.schemas.Columns(r.Context(), chi.URLParam(r, "schema"), chi.URLParam(r, "table"))
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, cols)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.DefaultLogger.Error("Failed to write resource response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
