package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Ritika1223/jensieBackend/internal/transport"
	"github.com/Ritika1223/jensieBackend/internal/unavailability"

	"github.com/go-chi/chi/v5"
)

type MarkUnavailableRequest struct {
	StartDate   string `json:"startDate" validate:"required,date"`
	EndDate     string `json:"endDate" validate:"required,date"`
	Reason      string `json:"reason" validate:"max=500"`
	Type        string `json:"type" validate:"max=50"`
	IsRecurring bool   `json:"isRecurring"`
}

type unavailabilityQuery struct {
	StartDate string `validate:"omitempty,date"`
	EndDate   string `validate:"omitempty,date"`
}

func (s *Server) MarkDoctorUnavailable(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	doctorID := chi.URLParam(r, "doctorId")
	if !principal(r).ActsForDoctor(doctorID) {
		log.Warn("unavailability mark: forbidden", slog.String("doctor_id", doctorID))
		transport.WriteError(w, http.StatusForbidden, "forbidden", nil)
		return
	}

	var req MarkUnavailableRequest
	if !s.decodeAndValidate(w, r, log, "unavailability mark", &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), writeTimeout)
	defer cancel()

	res, err := s.Unavailability.Mark(ctx, unavailability.MarkRequest{
		DoctorID:    doctorID,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Reason:      req.Reason,
		Type:        req.Type,
		IsRecurring: req.IsRecurring,
	})
	if err != nil {
		writeServiceError(w, log, "unavailability mark", err)
		return
	}
	transport.WriteData(w, http.StatusCreated, res)
}

func (s *Server) GetDoctorUnavailability(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	doctorID := chi.URLParam(r, "doctorId")
	q := unavailabilityQuery{StartDate: r.URL.Query().Get("startDate"), EndDate: r.URL.Query().Get("endDate")}
	if !s.validate(w, log, "unavailability list", q) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	windows, err := s.Unavailability.List(ctx, doctorID, q.StartDate, q.EndDate)
	if err != nil {
		writeServiceError(w, log, "unavailability list", err)
		return
	}

	log.Info("unavailability list: ok", slog.String("doctor_id", doctorID), slog.Int("count", len(windows)))
	transport.WriteData(w, http.StatusOK, windows)
}
