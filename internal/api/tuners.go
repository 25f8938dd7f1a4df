package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/tunerd/internal/tuner"
)

// tunerView is the detail representation of a tuner: the device snapshot
// plus its property list.
type tunerView struct {
	tuner.DeviceInfo
	Properties []tuner.Property `json:"properties"`
}

func newTunerView(info tuner.DeviceInfo) tunerView {
	return tunerView{DeviceInfo: info, Properties: info.Properties()}
}

// handleListTuners returns every known tuner device.
func (s *Server) handleListTuners(w http.ResponseWriter, _ *http.Request) {
	devices := s.tuners.Devices()
	writeJSON(w, http.StatusOK, map[string]any{"tuners": devices, "count": len(devices)})
}

// handleGetTuner returns one device with its properties and frontends.
func (s *Server) handleGetTuner(w http.ResponseWriter, r *http.Request) {
	info, err := s.tuners.Device(chi.URLParam(r, "uuid"))
	if err != nil {
		writeTunerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTunerView(info))
}

// handleUpdateTuner writes device properties. The body maps property ids
// to values, e.g. {"fe_override":"DVB-T"}. Properties are applied in key
// order and the first failure stops the update.
func (s *Server) handleUpdateTuner(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "uuid")

	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "request body too large")
			return
		}
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(body) == 0 {
		writeBadRequest(w, "no properties to update")
		return
	}
	if _, err := s.tuners.Device(identity); err != nil {
		writeTunerError(w, err)
		return
	}

	ids := make([]string, 0, len(body))
	for id := range body {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := s.tuners.SetProperty(r.Context(), identity, id, body[id]); err != nil {
			s.logger.Warn("tuner update failed",
				"device", identity, "property", id, "error", err,
				"request_id", requestID(r.Context()))
			writeTunerError(w, err)
			return
		}
	}

	info, err := s.tuners.Device(identity)
	if err != nil {
		writeTunerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTunerView(info))
}

// handleDeleteTuner destroys a device. With ?forget=true its saved
// record is removed too.
func (s *Server) handleDeleteTuner(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "uuid")

	forget := false
	if v := r.URL.Query().Get("forget"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeBadRequest(w, "forget must be a boolean")
			return
		}
		forget = b
	}

	if err := s.tuners.RemoveDevice(r.Context(), identity, forget); err != nil {
		writeTunerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListFrontends returns the frontends of one device.
func (s *Server) handleListFrontends(w http.ResponseWriter, r *http.Request) {
	info, err := s.tuners.Device(chi.URLParam(r, "uuid"))
	if err != nil {
		writeTunerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"frontends": info.Frontends, "count": len(info.Frontends)})
}

// handleFrontendStatus asks one tuner unit for its status line.
func (s *Server) handleFrontendStatus(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "uuid")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		writeBadRequest(w, "index must be a non-negative integer")
		return
	}

	status, err := s.tuners.FrontendStatus(r.Context(), identity, index)
	if err != nil {
		writeTunerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tuner": index, "status": status})
}
