package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Ritika1223/jensieBackend/internal/apperr"
	"github.com/Ritika1223/jensieBackend/internal/appointments"
	"github.com/Ritika1223/jensieBackend/internal/auth"
	"github.com/Ritika1223/jensieBackend/internal/doctorschedule"
	"github.com/Ritika1223/jensieBackend/internal/httpx"
	"github.com/Ritika1223/jensieBackend/internal/middleware"
	"github.com/Ritika1223/jensieBackend/internal/slots"
	"github.com/Ritika1223/jensieBackend/internal/transport"
	"github.com/Ritika1223/jensieBackend/internal/unavailability"
	"github.com/Ritika1223/jensieBackend/internal/validation"
)

const (
	readTimeout  = 5 * time.Second
	writeTimeout = 10 * time.Second
)

// ReadinessCheck reports whether a backing dependency can serve requests.
type ReadinessCheck func(ctx context.Context) error

type Server struct {
	Val            *validation.Validator
	Log            *slog.Logger
	Appointments   *appointments.Service
	Schedules      *doctorschedule.Service
	Materializer   *slots.Materializer
	Availability   *slots.Availability
	Labels         *slots.LabelIndex
	Unavailability *unavailability.Registry
	Checks         map[string]ReadinessCheck
}

func (s *Server) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return s.Log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return s.Log.With(slog.String("request_id", id))
	}
	return s.Log
}

func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p
}

// decodeAndValidate reads a JSON body into dst and runs struct validation. It
// writes the 400 response itself and reports false on failure.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, log *slog.Logger, action string, dst interface{}) bool {
	if err := httpx.DecodeJSON(r.Body, dst); err != nil {
		log.Warn(action+": invalid json", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return false
	}
	return s.validate(w, log, action, dst)
}

func (s *Server) validate(w http.ResponseWriter, log *slog.Logger, action string, v interface{}) bool {
	if err := s.Val.Struct(v); err != nil {
		log.Warn(action + ": validation error")
		details := httpx.ValidationDetails(s.Val.ValidationErrors(err))
		transport.WriteError(w, http.StatusBadRequest, "validation error", details)
		return false
	}
	return true
}

// writeServiceError maps a domain error to its HTTP status. Client errors are
// logged at warn, everything else at error without echoing the cause.
func writeServiceError(w http.ResponseWriter, log *slog.Logger, action string, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		log.Error(action+": internal error", slog.String("error", err.Error()))
	} else {
		log.Warn(action+": rejected", slog.Int("status", status), slog.String("error", err.Error()))
	}
	transport.WriteError(w, status, apperr.Message(err), nil)
}
