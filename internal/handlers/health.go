package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Ritika1223/jensieBackend/internal/transport"
)

func (s *Server) Live(w http.ResponseWriter, r *http.Request) {
	transport.WriteData(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready runs every readiness check and reports 503 when any of them fails.
func (s *Server) Ready(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(s.Checks))
	for name, check := range s.Checks {
		if err := check(ctx); err != nil {
			log.Warn("health ready: check failed", slog.String("check", name), slog.String("error", err.Error()))
			results[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	if status != http.StatusOK {
		transport.WriteJSON(w, status, transport.DataResponse{Success: false, Data: results})
		return
	}
	transport.WriteData(w, status, results)
}

