package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Bookaj/footalk/dom"
	"github.com/Bookaj/footalk/engine"
	"github.com/Bookaj/footalk/mutation"
	"github.com/Bookaj/footalk/profile"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxBody = 1 << 20

// Engine is what the HTTP surface drives; *engine.Engine implements it.
type Engine interface {
	Updater
	StreamTarget
	State(ctx context.Context) (engine.State, error)
	Render(ctx context.Context, w io.Writer, f dom.Format) error
}

// FilterFunc returns the profile filter the language list honours.
type FilterFunc func(ctx context.Context) profile.Filter

// HandlerOption configures NewHandler.
type HandlerOption func(*handler)

// WithFilter sets where GET /languages reads its filter. Default:
// profile.DefaultFilter.
func WithFilter(fn FilterFunc) HandlerOption {
	return func(h *handler) { h.filter = fn }
}

// WithSocket mounts hub at GET /ws.
func WithSocket(hub *Hub) HandlerOption {
	return func(h *handler) { h.hub = hub }
}

// WithLogger sets the handler logger.
func WithLogger(l *slog.Logger) HandlerOption {
	return func(h *handler) { h.logger = l }
}

type handler struct {
	eng    Engine
	reg    *profile.Registry
	filter FilterFunc
	hub    *Hub
	logger *slog.Logger
}

// NewHandler returns the engine's HTTP API:
//
//	POST /message    state-update message, answers an Ack
//	GET  /state      current engine state
//	GET  /languages  visible profiles grouped by source script
//	POST /pointer    pointer event, answers the overlay state
//	GET  /document   current document (?format=html|text|markdown)
//	GET  /ws         page socket, when WithSocket is given
//	GET  /healthz
func NewHandler(eng Engine, reg *profile.Registry, opts ...HandlerOption) http.Handler {
	h := &handler{
		eng:    eng,
		reg:    reg,
		filter: func(context.Context) profile.Filter { return profile.DefaultFilter() },
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(h)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/message", h.message)
	r.Get("/state", h.state)
	r.Get("/languages", h.languages)
	r.Post("/pointer", h.pointer)
	r.Get("/document", h.document)
	if h.hub != nil {
		r.Get("/ws", h.hub.Handler(eng))
	}
	return r
}

func (h *handler) message(w http.ResponseWriter, r *http.Request) {
	var m Message
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ack, err := Dispatch(r.Context(), h.eng, m)
	switch {
	case errors.Is(err, ErrUnknownAction):
		h.logger.Debug("transport: message ignored", "action", m.Action)
		writeJSON(w, http.StatusOK, ack)
	case err != nil:
		h.logger.Warn("transport: update failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		writeJSON(w, http.StatusOK, ack)
	}
}

func (h *handler) state(w http.ResponseWriter, r *http.Request) {
	st, err := h.eng.State(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// languageGroup is the wire form of a profile.Group.
type languageGroup struct {
	Source    string     `json:"source"`
	Languages []language `json:"languages"`
}

type language struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MaxLevel int    `json:"max_level"`
}

func (h *handler) languages(w http.ResponseWriter, r *http.Request) {
	groups := profile.Grouped(h.reg.Visible(h.filter(r.Context())))
	out := make([]languageGroup, 0, len(groups))
	for _, g := range groups {
		lg := languageGroup{Source: g.Source}
		for _, p := range g.Profiles {
			lg.Languages = append(lg.Languages, language{ID: p.ID, Name: p.Name, MaxLevel: p.MaxLevel()})
		}
		out = append(out, lg)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) pointer(w http.ResponseWriter, r *http.Request) {
	var p mutation.Pointer
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ov, err := h.eng.Pointer(r.Context(), p)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func (h *handler) document(w http.ResponseWriter, r *http.Request) {
	f := dom.FormatHTML
	if q := r.URL.Query().Get("format"); q != "" {
		var err error
		if f, err = dom.ParseFormat(q); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	switch f {
	case dom.FormatHTML:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	case dom.FormatMarkdown:
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	if err := h.eng.Render(r.Context(), w, f); err != nil {
		h.logger.Warn("transport: render failed", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
