package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/triggerd/internal/accessory"
	"github.com/dokzlo13/triggerd/internal/debounce"
	"github.com/dokzlo13/triggerd/internal/ledger"
	"github.com/dokzlo13/triggerd/internal/webhook"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 1000
	maxBodySize       = 1 << 16
)

type triggerRequest struct {
	Active *bool `json:"active"`
}

// handleTrigger is the manual entry point: POST /trigger/{kind}/{name} {"active": bool}.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	kind := debounce.Kind(chi.URLParam(r, "kind"))
	name := chi.URLParam(r, "name")

	active := true
	var req triggerRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Active != nil {
		active = *req.Active
	}

	res := s.engine.Trigger(r.Context(), kind, name, active)
	webhook.WriteResult(w, res)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	gs, err := s.settings.GeneralSettings(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to read general settings")
		writeError(w, http.StatusInternalServerError, "failed to read settings")
		return
	}
	writeJSON(w, http.StatusOK, gs)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var gs debounce.GeneralSettings
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&gs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if gs.Exclude == nil {
		gs.Exclude = []string{}
	}

	if err := s.settings.SetGeneralSettings(r.Context(), gs); err != nil {
		log.Error().Err(err).Msg("Failed to write general settings")
		writeError(w, http.StatusInternalServerError, "failed to write settings")
		return
	}
	writeJSON(w, http.StatusOK, gs)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxEventLimit)
	}

	var (
		entries []*ledger.Entry
		err     error
	)
	if device := r.URL.Query().Get("device"); device != "" {
		entries, err = s.events.ByDevice(r.Context(), device, limit)
	} else {
		entries, err = s.events.Recent(r.Context(), limit)
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to list events")
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if entries == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type deviceInfo struct {
	Name           string         `json:"name"`
	ID             string         `json:"id"`
	Capabilities   []string       `json:"capabilities"`
	MotionTimeout  float64        `json:"motion_timeout"`
	MotionDoorbell bool           `json:"motion_doorbell"`
	HSV            bool           `json:"hsv"`
	Motion         debounce.State `json:"motion_state"`
	Doorbell       debounce.State `json:"doorbell_state"`
}

func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	devices := []deviceInfo{}
	if s.devices != nil {
		for _, cam := range s.devices.Cameras() {
			devices = append(devices, s.describe(cam))
		}
	}
	writeJSON(w, http.StatusOK, devices)
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if s.devices == nil {
		writeError(w, http.StatusNotFound, "camera not found")
		return
	}
	cam, ok := s.devices.Camera(name)
	if !ok {
		writeError(w, http.StatusNotFound, "camera not found")
		return
	}
	writeJSON(w, http.StatusOK, s.describe(cam))
}

func (s *Server) describe(cam *accessory.Camera) deviceInfo {
	caps := []string{}
	for _, c := range cam.Capabilities() {
		caps = append(caps, c.String())
	}
	opts := cam.Options()
	return deviceInfo{
		Name:           cam.Name(),
		ID:             cam.ID(),
		Capabilities:   caps,
		MotionTimeout:  opts.MotionTimeout,
		MotionDoorbell: opts.MotionDoorbell,
		HSV:            opts.HSV,
		Motion:         s.engine.Motion().State(cam.ID()),
		Doorbell:       s.engine.Doorbell().State(cam.ID()),
	}
}
