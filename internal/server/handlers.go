package server

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"path"
	"time"

	"github.com/gorilla/mux"
	"github.com/samber/lo"

	"erbgo/internal/common/errors"
	"erbgo/internal/common/logging"
	"erbgo/internal/datactx"
	"erbgo/internal/engine"
)

// maxBodySize caps POST /render bodies.
const maxBodySize = 1 << 20

// Handlers serves registered templates over HTTP.
type Handlers struct {
	engine *engine.Engine
	base   map[string]interface{}
}

// TemplateInfo describes a registered template.
type TemplateInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Filename   string    `json:"filename"`
	Dialect    string    `json:"dialect"`
	TrimMode   string    `json:"trim_mode"`
	Percent    bool      `json:"percent"`
	Isolation  string    `json:"isolation"`
	Lines      int       `json:"lines"`
	CompiledAt time.Time `json:"compiled_at"`
	Program    string    `json:"program,omitempty"`
}

// NewHandlers creates handlers for eng. base is the data every render starts from;
// it is never modified.
func NewHandlers(eng *engine.Engine, base map[string]interface{}) *Handlers {
	return &Handlers{
		engine: eng,
		base:   base,
	}
}

// NewRouter wires the handlers and middleware into a router.
func NewRouter(h *Handlers, middlewares ...mux.MiddlewareFunc) *mux.Router {
	router := mux.NewRouter()
	for _, mw := range middlewares {
		router.Use(mw)
	}

	router.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	router.HandleFunc("/templates", h.ListTemplates).Methods("GET")
	router.HandleFunc("/templates/{name:.+}", h.GetTemplate).Methods("GET")
	router.HandleFunc("/render/{name:.+}", h.RenderTemplate).Methods("GET", "POST")
	return router
}

func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"templates": len(h.engine.Templates()),
		"dialect":   h.engine.Evaluator().Dialect().Name(),
	}

	writeJSON(w, http.StatusOK, health)
}

func (h *Handlers) ListTemplates(w http.ResponseWriter, r *http.Request) {
	names := h.engine.Templates()
	infos := make([]TemplateInfo, 0, len(names))
	for _, name := range names {
		if tmpl, ok := h.engine.Lookup(name); ok {
			infos = append(infos, h.describe(tmpl, false))
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"templates": infos})
}

func (h *Handlers) GetTemplate(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	tmpl, ok := h.engine.Lookup(name)
	if !ok {
		writeError(w, errors.NotFoundError("template "+name))
		return
	}

	writeJSON(w, http.StatusOK, h.describe(tmpl, true))
}

// RenderTemplate renders the named template. Data is the base context,
// then query parameters (dotted keys nest), then for POST a JSON object body.
func (h *Handlers) RenderTemplate(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	vars := datactx.Clone(h.base)
	if vars == nil {
		vars = make(map[string]interface{})
	}

	for key, values := range r.URL.Query() {
		if len(values) == 1 {
			datactx.Set(vars, key, values[0])
			continue
		}
		datactx.Set(vars, key, lo.Map(values, func(v string, _ int) interface{} { return v }))
	}

	if r.Method == http.MethodPost {
		body, err := readJSONBody(w, r)
		if err != nil {
			writeError(w, err)
			return
		}
		vars = datactx.Merge(vars, body)
	}

	out, err := h.engine.RenderNamed(r.Context(), name, vars)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentTypeFor(name))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, out)
}

func (h *Handlers) describe(tmpl *engine.Template, withProgram bool) TemplateInfo {
	program := tmpl.Program()
	opts := tmpl.Options()
	info := TemplateInfo{
		ID:         tmpl.ID,
		Name:       tmpl.Name,
		Filename:   opts.Filename,
		Dialect:    program.Dialect(),
		TrimMode:   program.TrimMode().String(),
		Percent:    program.Percent(),
		Isolation:  opts.Isolation.String(),
		Lines:      program.Lines(),
		CompiledAt: tmpl.CompiledAt,
	}
	if withProgram {
		info.Program = program.Source()
	}
	return info
}

func readJSONBody(w http.ResponseWriter, r *http.Request) (map[string]interface{}, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return nil, errors.ValidationError("failed to read request body")
	}
	if len(data) == 0 {
		return nil, nil
	}
	body, err := datactx.Parse(data, datactx.FormatJSON)
	if err != nil {
		return nil, errors.ValidationError("request body must be a JSON object: " + err.Error())
	}
	return body, nil
}

// contentTypeFor guesses from the extension left on a template name, so
// "index.html" renders as text/html.
func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "text/plain; charset=utf-8"
}

func statusFor(err error) int {
	switch errors.GetType(err) {
	case errors.ErrTypeNotFound:
		return http.StatusNotFound
	case errors.ErrTypeSyntax, errors.ErrTypeValidation:
		return http.StatusBadRequest
	case errors.ErrTypeWorker:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]interface{}{
		"error": err.Error(),
		"type":  errors.GetType(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode response", err)
	}
}
