package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-matterhub/internal/bridge"
	"github.com/nerrad567/gray-logic-matterhub/internal/homeassistant"
)

// maxEntityIDLen matches Home Assistant's own entity_id limit.
const maxEntityIDLen = 255

// handleListEndpoints returns every bridged endpoint ordered by number.
func (s *Server) handleListEndpoints(w http.ResponseWriter, _ *http.Request) {
	endpoints := s.bridge.Endpoints()
	writeJSON(w, http.StatusOK, map[string]any{
		"endpoints": endpoints,
		"count":     len(endpoints),
	})
}

// handleGetEndpoint returns one endpoint with its live cluster attributes.
func (s *Server) handleGetEndpoint(w http.ResponseWriter, r *http.Request) {
	number, err := parseEndpointNumber(chi.URLParam(r, "number"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	info, ok := s.bridge.Endpoint(number)
	if !ok {
		writeNotFound(w, "endpoint not found")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleGetEndpointHistory returns an endpoint's recent attribute changes,
// newest first. The endpoint need not be bridged right now: history
// outlives removal.
func (s *Server) handleGetEndpointHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "attribute history is not enabled")
		return
	}

	number, err := parseEndpointNumber(chi.URLParam(r, "number"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	records, err := s.history.List(r.Context(), number, limit)
	if err != nil {
		s.logger.Error("listing attribute history", "endpoint", number, "error", err)
		writeInternalError(w, "failed to list attribute history")
		return
	}
	if records == nil {
		records = []bridge.HistoryRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"endpoint": number,
		"history":  records,
		"count":    len(records),
	})
}

// entityResponse explains how one Home Assistant entity is bridged.
type entityResponse struct {
	EntityID string                  `json:"entity_id"`
	Bridged  bool                    `json:"bridged"`
	Endpoint *bridge.EndpointInfo    `json:"endpoint,omitempty"`
	Skipped  string                  `json:"skipped,omitempty"`
	Snapshot *homeassistant.Snapshot `json:"snapshot,omitempty"`
}

// handleGetEntity returns an entity's latest snapshot together with its
// endpoint, or the reason it was not bridged.
func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entity_id")
	if !validEntityID(entityID) {
		writeBadRequest(w, "invalid entity ID")
		return
	}

	resp := entityResponse{EntityID: entityID}
	if snap, ok := s.entities.Current(entityID); ok {
		resp.Snapshot = &snap
	}
	if info, ok := s.bridge.EndpointForEntity(entityID); ok {
		resp.Bridged = true
		resp.Endpoint = &info
	} else if reason, ok := s.bridge.Skipped(entityID); ok {
		resp.Skipped = reason
	}

	if resp.Snapshot == nil && !resp.Bridged && resp.Skipped == "" {
		writeNotFound(w, "entity not found")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseEndpointNumber accepts the dynamic endpoint range. Endpoint 0 is
// the root node and 1 the aggregator; neither is served here.
func parseEndpointNumber(raw string) (uint16, error) {
	n, err := strconv.ParseUint(raw, 10, 16)
	if err != nil || n < bridge.FirstEndpointNumber || n > bridge.LastEndpointNumber {
		return 0, fmt.Errorf("invalid endpoint number %q", raw)
	}
	return uint16(n), nil
}

// parseLimit parses the optional limit query parameter. Zero means the
// repository default; the repository clamps large values.
func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	return n, nil
}

func validEntityID(id string) bool {
	if id == "" || len(id) > maxEntityIDLen {
		return false
	}
	domain, object, ok := strings.Cut(id, ".")
	return ok && domain != "" && object != ""
}
