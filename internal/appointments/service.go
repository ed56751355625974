// Package appointments reserves and releases time slots on behalf of patients.
// Every precondition of a booking or cancellation is checked inside the same
// store transaction that performs the writes.
package appointments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Ritika1223/jensieBackend/internal/apperr"
	"github.com/Ritika1223/jensieBackend/internal/auth"
	"github.com/Ritika1223/jensieBackend/internal/models"
	"github.com/Ritika1223/jensieBackend/internal/notifications"
	"github.com/Ritika1223/jensieBackend/internal/schedule"
	"github.com/Ritika1223/jensieBackend/internal/store"
	"github.com/Ritika1223/jensieBackend/internal/unavailability"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrSlotNotFound           = fmt.Errorf("%w: time slot not found", apperr.ErrNotFound)
	ErrSlotUnavailable        = fmt.Errorf("%w: time slot is not available", apperr.ErrConflict)
	ErrSlotMismatch           = fmt.Errorf("%w: time slot does not belong to this doctor", apperr.ErrConflict)
	ErrPastSlot               = fmt.Errorf("%w: cannot book a time slot in the past", apperr.ErrValidation)
	ErrDoctorNotFound         = fmt.Errorf("%w: doctor not found", apperr.ErrNotFound)
	ErrAppointmentNotFound    = fmt.Errorf("%w: appointment not found", apperr.ErrNotFound)
	ErrForbidden              = fmt.Errorf("%w: not allowed to access this appointment", apperr.ErrForbidden)
	ErrAlreadyCancelled       = fmt.Errorf("%w: appointment is already cancelled", apperr.ErrConflict)
	ErrInvalidAppointmentType = fmt.Errorf("%w: invalid appointment type", apperr.ErrValidation)
)

const defaultNotifyTimeout = 10 * time.Second

// Notifier delivers best-effort side effects of appointment changes.
type Notifier interface {
	NotifyBooked(ctx context.Context, b notifications.Booking) error
	NotifyCancelled(ctx context.Context, b notifications.Booking) error
}

// Invalidator drops cached slot read models for one doctor and date.
type Invalidator interface {
	Invalidate(ctx context.Context, doctorID, date string) error
}

type ReserveRequest struct {
	DoctorID        string
	TimeSlotID      string
	AppointmentType string
	Notes           string
}

// View is an appointment together with the slot it is bound to.
type View struct {
	models.Appointment
	Slot *models.TimeSlot `json:"timeSlot,omitempty"`
}

type Page struct {
	Items []View
	Total int64
}

type Service struct {
	store         *store.Store
	registry      *unavailability.Registry
	notifier      Notifier
	invalidator   Invalidator
	location      *time.Location
	log           *slog.Logger
	now           func() time.Time
	notifyTimeout time.Duration
	wg            sync.WaitGroup
}

func NewService(st *store.Store, registry *unavailability.Registry, location *time.Location, log *slog.Logger) *Service {
	return &Service{
		store:         st,
		registry:      registry,
		location:      location,
		log:           log,
		now:           time.Now,
		notifyTimeout: defaultNotifyTimeout,
	}
}

func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *Service) SetInvalidator(inv Invalidator) {
	s.invalidator = inv
}

func (s *Service) SetNotifyTimeout(d time.Duration) {
	if d > 0 {
		s.notifyTimeout = d
	}
}

// Wait blocks until every in-flight notification has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Reserve books a slot for the principal. Exactly one of several concurrent
// reservations of the same slot succeeds; the others fail with
// ErrSlotUnavailable.
func (s *Service) Reserve(ctx context.Context, p auth.Principal, req ReserveRequest) (View, error) {
	if req.DoctorID == "" || req.TimeSlotID == "" {
		return View{}, apperr.Validation("doctorId and timeSlotId are required")
	}
	if !models.IsValidBookingType(req.AppointmentType) {
		return View{}, ErrInvalidAppointmentType
	}

	var (
		appt   models.Appointment
		slot   models.TimeSlot
		doctor models.Doctor
	)
	err := s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		slot, err = s.store.Slots.GetByID(ctx, req.TimeSlotID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrSlotNotFound
		}
		if err != nil {
			return err
		}
		if slot.Status != models.SlotStatusAvailable {
			return ErrSlotUnavailable
		}
		if slot.DoctorID != req.DoctorID {
			return ErrSlotMismatch
		}
		now := s.now()
		past, err := schedule.IsSlotPast(slot.Date, slot.StartTime, s.location, now)
		if err != nil {
			return fmt.Errorf("slot %s has malformed start: %w", slot.ID, err)
		}
		if past {
			return ErrPastSlot
		}

		doctor, err = s.store.Doctors.Get(ctx, req.DoctorID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrDoctorNotFound
		}
		if err != nil {
			return err
		}

		appt = models.Appointment{
			ID:              primitive.NewObjectID().Hex(),
			UserID:          p.UserID,
			DoctorID:        req.DoctorID,
			TimeSlotID:      slot.ID,
			AppointmentType: req.AppointmentType,
			Notes:           req.Notes,
			Status:          models.AppointmentStatusConfirmed,
			ConsultationFee: doctor.Fee,
			PaymentStatus:   models.PaymentStatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.store.Appointments.Create(ctx, appt); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrSlotUnavailable
			}
			return err
		}

		claimed, err := s.store.Slots.Claim(ctx, slot.ID, appt.ID, req.AppointmentType, now)
		if err != nil {
			return err
		}
		if !claimed {
			return ErrSlotUnavailable
		}
		slot.Status = models.SlotStatusBooked
		slot.AppointmentID = &appt.ID
		slot.BookingType = &appt.AppointmentType
		slot.UpdatedAt = now
		return nil
	})
	if err != nil {
		return View{}, err
	}

	s.invalidate(ctx, slot.DoctorID, slot.Date)
	s.log.Info("appointments reserve: booked",
		slog.String("appointment_id", appt.ID),
		slog.String("doctor_id", appt.DoctorID),
		slog.String("slot_id", slot.ID),
		slog.String("date", slot.Date),
		slog.String("start_time", slot.StartTime),
	)
	s.notify(notifications.EventAppointmentBooked, notifications.Booking{Appointment: appt, Slot: slot, Doctor: doctor})
	return View{Appointment: appt, Slot: &slot}, nil
}

// Cancel cancels an appointment and releases its slot. A missing slot does not
// block the cancellation.
func (s *Service) Cancel(ctx context.Context, p auth.Principal, appointmentID, reason string) (View, error) {
	if appointmentID == "" {
		return View{}, apperr.Validation("appointment id is required")
	}

	var (
		appt    models.Appointment
		slot    models.TimeSlot
		hasSlot bool
	)
	err := s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		hasSlot = false
		current, err := s.store.Appointments.GetByID(ctx, appointmentID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrAppointmentNotFound
		}
		if err != nil {
			return err
		}
		if !canAccess(p, current) {
			return ErrForbidden
		}
		if current.Status == models.AppointmentStatusCancelled {
			return ErrAlreadyCancelled
		}

		now := s.now()
		appt, err = s.store.Appointments.MarkCancelled(ctx, current.ID, cancelledBy(p, current), reason, now)
		if errors.Is(err, store.ErrNotFound) {
			return ErrAlreadyCancelled
		}
		if err != nil {
			return err
		}

		slot, err = s.store.Slots.GetByID(ctx, current.TimeSlotID)
		if errors.Is(err, store.ErrNotFound) {
			s.log.Warn("appointments cancel: slot missing",
				slog.String("appointment_id", current.ID),
				slog.String("slot_id", current.TimeSlotID),
			)
			return nil
		}
		if err != nil {
			return err
		}
		hasSlot = true

		status, err := s.releaseStatus(ctx, slot)
		if err != nil {
			return err
		}
		released, err := s.store.Slots.Release(ctx, slot.ID, current.ID, status, now)
		if err != nil {
			return err
		}
		if !released {
			s.log.Warn("appointments cancel: slot bound elsewhere",
				slog.String("appointment_id", current.ID),
				slog.String("slot_id", slot.ID),
			)
			return nil
		}
		slot.Status = status
		slot.AppointmentID = nil
		slot.BookingType = nil
		slot.UpdatedAt = now
		return nil
	})
	if err != nil {
		return View{}, err
	}

	view := View{Appointment: appt}
	if hasSlot {
		view.Slot = &slot
		s.invalidate(ctx, slot.DoctorID, slot.Date)
	}
	s.log.Info("appointments cancel: ok",
		slog.String("appointment_id", appt.ID),
		slog.String("cancelled_by", appt.CancelledBy),
	)
	s.notify(notifications.EventAppointmentCancelled, notifications.Booking{Appointment: appt, Slot: slot})
	return view, nil
}

// releaseStatus keeps a freed slot withdrawn when the doctor has since been
// marked unavailable for its date.
func (s *Service) releaseStatus(ctx context.Context, slot models.TimeSlot) (string, error) {
	if s.registry == nil {
		return models.SlotStatusAvailable, nil
	}
	_, blocked, err := s.registry.CoveringWindow(ctx, slot.DoctorID, slot.Date, slot.Date)
	if err != nil {
		return "", err
	}
	if blocked {
		return models.SlotStatusCancelled, nil
	}
	return models.SlotStatusAvailable, nil
}

func (s *Service) Get(ctx context.Context, p auth.Principal, id string) (View, error) {
	appt, err := s.store.Appointments.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return View{}, ErrAppointmentNotFound
	}
	if err != nil {
		return View{}, err
	}
	if !canAccess(p, appt) {
		return View{}, ErrForbidden
	}
	views, err := s.withSlots(ctx, []models.Appointment{appt})
	if err != nil {
		return View{}, err
	}
	return views[0], nil
}

// ListForUser lists the principal's own appointments, newest first.
func (s *Service) ListForUser(ctx context.Context, p auth.Principal, status string, limit, offset int64) (Page, error) {
	if err := validateStatus(status); err != nil {
		return Page{}, err
	}
	return s.list(ctx, store.AppointmentFilter{UserID: p.UserID, Status: status}, limit, offset)
}

// ListForDoctor lists appointments booked with doctorID. A non-empty date keeps
// only appointments whose slot falls on that day.
func (s *Service) ListForDoctor(ctx context.Context, p auth.Principal, doctorID, status, date string, limit, offset int64) (Page, error) {
	if !p.ActsForDoctor(doctorID) {
		return Page{}, ErrForbidden
	}
	if err := validateStatus(status); err != nil {
		return Page{}, err
	}
	filter := store.AppointmentFilter{DoctorID: doctorID, Status: status}
	if date != "" {
		if _, err := schedule.ParseDate(date, s.location); err != nil {
			return Page{}, apperr.Validation("invalid date")
		}
		slots, err := s.store.Slots.List(ctx, store.SlotFilter{DoctorID: doctorID, DateFrom: date, DateTo: date})
		if err != nil {
			return Page{}, err
		}
		filter.TimeSlotIDs = make([]string, 0, len(slots))
		for _, slot := range slots {
			filter.TimeSlotIDs = append(filter.TimeSlotIDs, slot.ID)
		}
	}
	return s.list(ctx, filter, limit, offset)
}

func (s *Service) list(ctx context.Context, filter store.AppointmentFilter, limit, offset int64) (Page, error) {
	total, err := s.store.Appointments.Count(ctx, filter)
	if err != nil {
		return Page{}, err
	}
	items, err := s.store.Appointments.List(ctx, filter, limit, offset)
	if err != nil {
		return Page{}, err
	}
	views, err := s.withSlots(ctx, items)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: views, Total: total}, nil
}

func (s *Service) withSlots(ctx context.Context, items []models.Appointment) ([]View, error) {
	ids := make([]string, 0, len(items))
	for _, a := range items {
		ids = append(ids, a.TimeSlotID)
	}
	slots, err := s.store.Slots.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	views := make([]View, 0, len(items))
	for _, a := range items {
		v := View{Appointment: a}
		if slot, ok := slots[a.TimeSlotID]; ok {
			v.Slot = &slot
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *Service) invalidate(ctx context.Context, doctorID, date string) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, doctorID, date); err != nil {
		s.log.Warn("appointments cache: invalidate failed",
			slog.String("doctor_id", doctorID),
			slog.String("date", date),
			slog.String("error", err.Error()),
		)
	}
}

// notify runs the notifier detached from the request. Failures are logged only.
func (s *Service) notify(eventType string, b notifications.Booking) {
	if s.notifier == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()

		s.enrich(ctx, &b)
		var err error
		switch eventType {
		case notifications.EventAppointmentBooked:
			err = s.notifier.NotifyBooked(ctx, b)
		case notifications.EventAppointmentCancelled:
			err = s.notifier.NotifyCancelled(ctx, b)
		}
		if err != nil {
			s.log.Warn("appointments notify: failed",
				slog.String("event", eventType),
				slog.String("appointment_id", b.Appointment.ID),
				slog.String("error", fmt.Errorf("%w: %w", apperr.ErrDependency, err).Error()),
			)
		}
	}()
}

func (s *Service) enrich(ctx context.Context, b *notifications.Booking) {
	if b.Doctor.ID == "" {
		if doctor, err := s.store.Doctors.Get(ctx, b.Appointment.DoctorID); err == nil {
			b.Doctor = doctor
		}
	}
	if user, err := s.store.Users.Get(ctx, b.Appointment.UserID); err == nil {
		b.Patient = user
	}
}

func canAccess(p auth.Principal, a models.Appointment) bool {
	if p.IsAdmin() {
		return true
	}
	if p.UserID == "" {
		return false
	}
	if p.UserID == a.UserID {
		return true
	}
	return p.Role == auth.RoleDoctor && p.UserID == a.DoctorID
}

func cancelledBy(p auth.Principal, a models.Appointment) string {
	switch {
	case p.IsAdmin():
		return models.CancelledByAdmin
	case p.Role == auth.RoleDoctor && p.UserID == a.DoctorID:
		return models.CancelledByDoctor
	default:
		return models.CancelledByUser
	}
}

func validateStatus(status string) error {
	if status != "" && !models.IsValidAppointmentStatus(status) {
		return apperr.Validation("invalid status")
	}
	return nil
}
