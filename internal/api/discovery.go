package api

import (
	"context"
	"net/http"

	"github.com/nerrad567/tunerd/internal/tuner"
)

// scanResponse is a scan result plus whether it was shared with another
// caller.
type scanResponse struct {
	tuner.ScanResult
	Shared bool `json:"shared"`
}

// handleScan runs a discovery pass. Concurrent requests join the pass
// already in flight rather than starting another.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	v, _, shared := s.scans.Do("scan", func() (any, error) {
		ctx, cancel := context.WithTimeout(s.ctx, scanTimeout)
		defer cancel()
		return s.tuners.Scan(ctx), nil
	})
	result := v.(tuner.ScanResult) //nolint:forcetypeassert // only ScanResult is stored

	if result.Skipped {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "tuner manager is not running")
		return
	}

	s.logger.Debug("scan requested",
		"found", result.Found, "created", result.Created, "shared", shared,
		"request_id", requestID(r.Context()))
	writeJSON(w, http.StatusOK, scanResponse{ScanResult: result, Shared: shared})
}
