package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Ritika1223/jensieBackend/internal/appointments"
	"github.com/Ritika1223/jensieBackend/internal/httpx"
	"github.com/Ritika1223/jensieBackend/internal/transport"

	"github.com/go-chi/chi/v5"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type BookAppointmentRequest struct {
	DoctorID        string `json:"doctorId" validate:"required"`
	TimeSlotID      string `json:"timeSlotId" validate:"required"`
	AppointmentType string `json:"appointmentType" validate:"required,bookingtype"`
	Notes           string `json:"notes" validate:"max=1000"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type appointmentListQuery struct {
	Status string `validate:"omitempty,oneof=pending confirmed cancelled"`
	Date   string `validate:"omitempty,date"`
}

func (s *Server) BookAppointment(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	var req BookAppointmentRequest
	if !s.decodeAndValidate(w, r, log, "appointments book", &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), writeTimeout)
	defer cancel()

	view, err := s.Appointments.Reserve(ctx, principal(r), appointments.ReserveRequest{
		DoctorID:        req.DoctorID,
		TimeSlotID:      req.TimeSlotID,
		AppointmentType: req.AppointmentType,
		Notes:           req.Notes,
	})
	if err != nil {
		writeServiceError(w, log, "appointments book", err)
		return
	}

	log.Info("appointments book: ok", slog.String("appointment_id", view.ID))
	transport.WriteData(w, http.StatusCreated, view)
}

func (s *Server) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := chi.URLParam(r, "id")

	var req CancelAppointmentRequest
	present, err := httpx.DecodeOptionalJSON(r.Body, &req)
	if err != nil {
		log.Warn("appointments cancel: invalid json", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if present && !s.validate(w, log, "appointments cancel", req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), writeTimeout)
	defer cancel()

	view, err := s.Appointments.Cancel(ctx, principal(r), id, req.Reason)
	if err != nil {
		writeServiceError(w, log, "appointments cancel", err)
		return
	}

	log.Info("appointments cancel: ok", slog.String("appointment_id", view.ID))
	transport.WriteData(w, http.StatusOK, view)
}

func (s *Server) GetAppointment(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	view, err := s.Appointments.Get(ctx, principal(r), id)
	if err != nil {
		writeServiceError(w, log, "appointments get", err)
		return
	}

	log.Info("appointments get: ok", slog.String("appointment_id", id))
	transport.WriteData(w, http.StatusOK, view)
}

func (s *Server) ListMyAppointments(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	q := appointmentListQuery{Status: r.URL.Query().Get("status")}
	if !s.validate(w, log, "appointments list", q) {
		return
	}
	pg, err := httpx.ParsePage(r.URL.Query(), defaultPageLimit, maxPageLimit)
	if err != nil {
		log.Warn("appointments list: invalid pagination")
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	page, err := s.Appointments.ListForUser(ctx, principal(r), q.Status, pg.Limit, pg.Offset)
	if err != nil {
		writeServiceError(w, log, "appointments list", err)
		return
	}

	log.Info("appointments list: ok", slog.Int("count", len(page.Items)))
	transport.WritePage(w, page.Items, transport.PageMeta{Total: page.Total, Limit: pg.Limit, Offset: pg.Offset})
}

func (s *Server) ListDoctorAppointments(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	doctorID := chi.URLParam(r, "doctorId")
	q := appointmentListQuery{Status: r.URL.Query().Get("status"), Date: r.URL.Query().Get("date")}
	if !s.validate(w, log, "doctor appointments list", q) {
		return
	}
	pg, err := httpx.ParsePage(r.URL.Query(), defaultPageLimit, maxPageLimit)
	if err != nil {
		log.Warn("doctor appointments list: invalid pagination")
		transport.WriteError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
	defer cancel()

	page, err := s.Appointments.ListForDoctor(ctx, principal(r), doctorID, q.Status, q.Date, pg.Limit, pg.Offset)
	if err != nil {
		writeServiceError(w, log, "doctor appointments list", err)
		return
	}

	log.Info("doctor appointments list: ok", slog.String("doctor_id", doctorID), slog.Int("count", len(page.Items)))
	transport.WritePage(w, page.Items, transport.PageMeta{Total: page.Total, Limit: pg.Limit, Offset: pg.Offset})
}
