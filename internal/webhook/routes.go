package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/triggerd/internal/debounce"
)

// Handler is the automated entry point of the debounce engine.
type Handler interface {
	Handle(ctx context.Context, kind debounce.Kind, name string, active bool) debounce.Result
}

// Register adds the camera ingress routes to r:
//
//	/{kind}/{name}        activate
//	/{kind}/reset/{name}  deactivate
func Register(r chi.Router, h Handler) {
	activate := handle(h, true)
	reset := handle(h, false)

	r.Get("/{kind}/{name}", activate)
	r.Post("/{kind}/{name}", activate)
	r.Get("/{kind}/reset/{name}", reset)
	r.Post("/{kind}/reset/{name}", reset)
}

func handle(h Handler, active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind := debounce.Kind(chi.URLParam(r, "kind"))
		name := chi.URLParam(r, "name")

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Received webhook request")

		WriteResult(w, h.Handle(r.Context(), kind, name, active))
	}
}

// StatusCode maps an engine result to an HTTP status.
func StatusCode(res debounce.Result) int {
	if !res.Failed() {
		return http.StatusOK
	}
	switch {
	case errors.Is(res.Err, debounce.ErrNotInitialized):
		return http.StatusServiceUnavailable
	case errors.Is(res.Err, debounce.ErrDeviceNotFound):
		return http.StatusNotFound
	case errors.Is(res.Err, debounce.ErrUnknownKind),
		errors.Is(res.Err, debounce.ErrMotionNotEnabled),
		errors.Is(res.Err, debounce.ErrDoorbellNotEnabled):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteResult writes res as {"status":..., "message":...}.
func WriteResult(w http.ResponseWriter, res debounce.Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusCode(res))
	json.NewEncoder(w).Encode(res)
}
