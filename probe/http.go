package probe

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/pierce/horosafe"
	"github.com/hazyhaar/pierce/probe/internal/fetcher"
	"github.com/hazyhaar/pierce/shield"
)

// Handler returns the HTTP API:
//
//	GET    /health
//	POST   /api/query
//	POST   /api/explain
//	GET    /api/selectors
//	POST   /api/selectors
//	DELETE /api/selectors/{name}
//	POST   /api/selectors/{name}/run
//	GET    /api/history?name=&selector=&source=&limit=
func (p *Probe) Handler() http.Handler {
	ops := make(map[string]operation)
	for _, op := range p.operations() {
		ops[op.name] = op
	}

	r := chi.NewRouter()
	for _, mw := range shield.APIStack(p.logger, p.cfg.Server.MaxBody) {
		r.Use(mw)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/api/query", p.serveBody(ops["query"]))
	r.Post("/api/explain", p.serveBody(ops["explain"]))

	r.Route("/api/selectors", func(r chi.Router) {
		r.Get("/", p.serve(ops["list_selectors"], func(*http.Request) (any, error) {
			return &emptyRequest{}, nil
		}))
		r.Post("/", p.serveBody(ops["save_selector"]))
		r.Delete("/{name}", p.serve(ops["delete_selector"], func(r *http.Request) (any, error) {
			return &nameRequest{Name: chi.URLParam(r, "name")}, nil
		}))
		r.Post("/{name}/run", p.serve(ops["run_selector"], func(r *http.Request) (any, error) {
			req, err := readBody[RunRequest](r, p.cfg.Server.MaxBody)
			if err != nil {
				return nil, err
			}
			req.Name = chi.URLParam(r, "name")
			return req, nil
		}))
	})

	r.Get("/api/history", p.serve(ops["history"], func(r *http.Request) (any, error) {
		q := r.URL.Query()
		return &HistoryFilter{
			Name:     q.Get("name"),
			Selector: q.Get("selector"),
			Source:   q.Get("source"),
			Limit:    queryInt(r, "limit", 0),
		}, nil
	}))
	return r
}

// serveBody decodes the JSON body with the operation's own decoder.
func (p *Probe) serveBody(op operation) http.HandlerFunc {
	return p.serve(op, func(r *http.Request) (any, error) {
		data, err := horosafe.LimitedReadAll(r.Body, p.cfg.Server.MaxBody)
		if err != nil {
			return nil, err
		}
		return op.decode(data)
	})
}

func (p *Probe) serve(op operation, decode func(*http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decode(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		resp, err := op.endpoint(r.Context(), req)
		if err != nil {
			code := statusFor(err)
			if code >= http.StatusInternalServerError {
				shield.GetLogger(r.Context()).Error("probe: request failed", "op", op.name, "error", err)
			}
			writeError(w, code, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case IsBadRequest(err):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoStore):
		return http.StatusServiceUnavailable
	case errors.Is(err, fetcher.ErrStatus):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func readBody[T any](r *http.Request, max int64) (*T, error) {
	data, err := horosafe.LimitedReadAll(r.Body, max)
	if err != nil {
		return nil, err
	}
	return decodeArgs[T](data)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
