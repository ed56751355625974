package notifications

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Ritika1223/jensieBackend/internal/models"
)

const (
	EventAppointmentBooked    = "appointment.booked"
	EventAppointmentCancelled = "appointment.cancelled"
)

// Booking is everything a notification about one appointment needs.
type Booking struct {
	Appointment models.Appointment
	Slot        models.TimeSlot
	Doctor      models.Doctor
	Patient     models.User
}

type Mailer interface {
	SendBookingConfirmation(ctx context.Context, b Booking) (string, error)
	SendDoctorBookingAlert(ctx context.Context, b Booking) (string, error)
	SendCancellationNotice(ctx context.Context, b Booking) (string, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, eventType string, b Booking) error
}

// Dispatcher fans an appointment change out to email and the event stream.
// Every channel is attempted; failures are joined.
type Dispatcher struct {
	mailer Mailer
	events EventPublisher
	log    *slog.Logger
}

func NewDispatcher(mailer Mailer, events EventPublisher, log *slog.Logger) *Dispatcher {
	return &Dispatcher{mailer: mailer, events: events, log: log}
}

func (d *Dispatcher) NotifyBooked(ctx context.Context, b Booking) error {
	var errs []error
	if d.mailer != nil {
		if b.Patient.Email != "" {
			errs = append(errs, d.send(ctx, "patient confirmation", b, d.mailer.SendBookingConfirmation))
		}
		if b.Doctor.Email != "" {
			errs = append(errs, d.send(ctx, "doctor alert", b, d.mailer.SendDoctorBookingAlert))
		}
	}
	if d.events != nil {
		errs = append(errs, d.events.Publish(ctx, EventAppointmentBooked, b))
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) NotifyCancelled(ctx context.Context, b Booking) error {
	var errs []error
	if d.mailer != nil && b.Patient.Email != "" {
		errs = append(errs, d.send(ctx, "cancellation notice", b, d.mailer.SendCancellationNotice))
	}
	if d.events != nil {
		errs = append(errs, d.events.Publish(ctx, EventAppointmentCancelled, b))
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) send(ctx context.Context, kind string, b Booking, fn func(context.Context, Booking) (string, error)) error {
	messageID, err := fn(ctx, b)
	if err != nil {
		return err
	}
	d.log.Info("appointments email: sent",
		slog.String("kind", kind),
		slog.String("appointment_id", b.Appointment.ID),
		slog.String("message_id", messageID),
	)
	return nil
}
