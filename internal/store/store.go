// Package store declares the persistence contracts used by the scheduling
// services. mongostore implements them on MongoDB and memstore keeps
// everything in process memory.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Ritika1223/jensieBackend/internal/models"
)

var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: duplicate key")
)

// Transactor runs fn atomically. Repositories called with the ctx handed to fn
// take part in the transaction; a non-nil error from fn rolls everything back.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type InsertResult struct {
	Inserted   int
	Duplicates int
}

type SlotFilter struct {
	DoctorID string
	// DateFrom and DateTo are inclusive YYYY-MM-DD bounds. Empty means open.
	DateFrom string
	DateTo   string
	Status   string
	Period   models.Period
}

type SlotRepository interface {
	// InsertMany inserts unordered. Slots colliding with an existing
	// (doctorId, date, startTime) are counted as duplicates, not errors.
	InsertMany(ctx context.Context, slots []models.TimeSlot) (InsertResult, error)
	GetByID(ctx context.Context, id string) (models.TimeSlot, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]models.TimeSlot, error)
	// List returns matching slots ordered by date then startTime.
	List(ctx context.Context, filter SlotFilter) ([]models.TimeSlot, error)
	// Claim moves an available slot to booked. It reports false when the slot
	// was no longer available.
	Claim(ctx context.Context, id, appointmentID, bookingType string, now time.Time) (bool, error)
	// Release detaches appointmentID from the slot and sets status. It reports
	// false when the slot is missing or bound to another appointment.
	Release(ctx context.Context, id, appointmentID, status string, now time.Time) (bool, error)
	// DeleteUnbooked removes every slot of the day that is not booked.
	DeleteUnbooked(ctx context.Context, doctorID, date string) (int64, error)
	// CancelAvailable cancels available slots dated within [from, to].
	CancelAvailable(ctx context.Context, doctorID, from, to string, now time.Time) (int64, error)
}

type AppointmentFilter struct {
	UserID   string
	DoctorID string
	Status   string
	// TimeSlotIDs restricts to the given slots when non-nil. An empty
	// non-nil slice matches nothing.
	TimeSlotIDs []string
}

type AppointmentRepository interface {
	Create(ctx context.Context, appointment models.Appointment) error
	GetByID(ctx context.Context, id string) (models.Appointment, error)
	List(ctx context.Context, filter AppointmentFilter, limit, offset int64) ([]models.Appointment, error)
	Count(ctx context.Context, filter AppointmentFilter) (int64, error)
	// MarkCancelled cancels a non-cancelled appointment and returns the
	// updated document.
	MarkCancelled(ctx context.Context, id, cancelledBy, reason string, at time.Time) (models.Appointment, error)
}

type TemplateRepository interface {
	Upsert(ctx context.Context, template models.ScheduleTemplate) (models.ScheduleTemplate, error)
	Get(ctx context.Context, doctorID string, dayOfWeek int) (models.ScheduleTemplate, error)
	ListByDoctor(ctx context.Context, doctorID string) ([]models.ScheduleTemplate, error)
	// DoctorIDs lists doctors with at least one available weekday.
	DoctorIDs(ctx context.Context) ([]string, error)
}

type OverrideRepository interface {
	Upsert(ctx context.Context, override models.ScheduleOverride) (models.ScheduleOverride, error)
	Get(ctx context.Context, doctorID, date string) (models.ScheduleOverride, error)
	ListRange(ctx context.Context, doctorID, from, to string) ([]models.ScheduleOverride, error)
}

type UnavailabilityRepository interface {
	Create(ctx context.Context, window models.UnavailabilityWindow) error
	// ListByDoctor returns all windows of the doctor ordered by startDate.
	ListByDoctor(ctx context.Context, doctorID string) ([]models.UnavailabilityWindow, error)
}

type DoctorRepository interface {
	Get(ctx context.Context, id string) (models.Doctor, error)
	Create(ctx context.Context, doctor models.Doctor) error
}

type UserRepository interface {
	Get(ctx context.Context, id string) (models.User, error)
	Create(ctx context.Context, user models.User) error
}

// Store bundles the repositories of one backend.
type Store struct {
	Tx             Transactor
	Slots          SlotRepository
	Appointments   AppointmentRepository
	Templates      TemplateRepository
	Overrides      OverrideRepository
	Unavailability UnavailabilityRepository
	Doctors        DoctorRepository
	Users          UserRepository
}
