package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/nerrad567/gray-logic-matterhub/internal/bridge"
	"github.com/nerrad567/gray-logic-matterhub/internal/homeassistant"
)

// healthCheckTimeout bounds each component check.
const healthCheckTimeout = 2 * time.Second

const (
	statusOK       = "ok"
	statusDegraded = "degraded"
)

type componentHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type healthResponse struct {
	Status        string                     `json:"status"`
	Version       string                     `json:"version"`
	Uptime        string                     `json:"uptime"`
	Entities      int                        `json:"entities"`
	Bridge        bridge.Status              `json:"bridge"`
	HomeAssistant *homeassistant.Status      `json:"home_assistant,omitempty"`
	Components    map[string]componentHealth `json:"components,omitempty"`
}

// handleHealth reports the hub's health. The response is 200 when every
// component check passes, the bridge is running and Home Assistant is
// connected, and 503 otherwise; the body is the same in both cases.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   statusOK,
		Version:  s.version,
		Uptime:   time.Since(s.started).Round(time.Second).String(),
		Entities: s.entities.Len(),
		Bridge:   s.bridge.Status(),
	}
	if !resp.Bridge.Running {
		resp.Status = statusDegraded
	}

	if s.ha != nil {
		st := s.ha.Status()
		resp.HomeAssistant = &st
		if !st.Connected {
			resp.Status = statusDegraded
		}
	}

	if len(s.checks) > 0 {
		resp.Components = make(map[string]componentHealth, len(s.checks))
		names := make([]string, 0, len(s.checks))
		for name := range s.checks {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			ch := runCheck(r.Context(), s.checks[name])
			if ch.Status != statusOK {
				resp.Status = statusDegraded
			}
			resp.Components[name] = ch
		}
	}

	status := http.StatusOK
	if resp.Status != statusOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func runCheck(ctx context.Context, checker HealthChecker) componentHealth {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := checker.HealthCheck(ctx); err != nil {
		return componentHealth{Status: statusDegraded, Error: err.Error()}
	}
	return componentHealth{Status: statusOK}
}
