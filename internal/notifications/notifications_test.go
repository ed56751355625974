package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Ritika1223/jensieBackend/internal/models"
	"github.com/segmentio/kafka-go"
)

func sampleBooking() Booking {
	return Booking{
		Appointment: models.Appointment{
			ID:              "appt-1",
			UserID:          "user-1",
			DoctorID:        "doc-1",
			TimeSlotID:      "slot-1",
			AppointmentType: models.BookingVideoCall,
			Status:          models.AppointmentStatusConfirmed,
			ConsultationFee: 500,
			Notes:           "recurring headache",
		},
		Slot:    models.TimeSlot{ID: "slot-1", Date: "2026-03-02", StartTime: "09:00", EndTime: "09:30", Label: "9:00 AM"},
		Doctor:  models.Doctor{ID: "doc-1", Name: "Asha Rao", Email: "asha@example.com", Specialty: "Neurology"},
		Patient: models.User{ID: "user-1", Name: "Ravi", Email: "ravi@example.com"},
	}
}

func TestBrevoSendsConfirmation(t *testing.T) {
	var got brevoSendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-key") != "key" {
			t.Errorf("missing api key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"<m1@brevo>"}`))
	}))
	defer srv.Close()

	c := NewBrevoClient("key", "clinic@example.com", "", true)
	c.endpoint = srv.URL
	id, err := c.SendBookingConfirmation(context.Background(), sampleBooking())
	if err != nil {
		t.Fatalf("SendBookingConfirmation error: %v", err)
	}
	if id != "<m1@brevo>" {
		t.Fatalf("unexpected message id %q", id)
	}
	if len(got.To) != 1 || got.To[0].Email != "ravi@example.com" {
		t.Fatalf("unexpected recipients: %+v", got.To)
	}
	if got.Headers["X-Sib-Sandbox"] != "drop" {
		t.Fatalf("expected sandbox header")
	}
	if len(got.Tags) != 1 || got.Tags[0] != "appointment-confirmed" {
		t.Fatalf("unexpected tags: %v", got.Tags)
	}
	if got.Sender.Email != "clinic@example.com" || got.Sender.Name != "clinic@example.com" {
		t.Fatalf("unexpected sender: %+v", got.Sender)
	}
	if !strings.Contains(got.HtmlContent, "9:00 AM") || !strings.Contains(got.HtmlContent, "Video call") {
		t.Fatalf("unexpected body: %s", got.HtmlContent)
	}
}

func TestBrevoReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad sender", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewBrevoClient("key", "clinic@example.com", "Clinic", false)
	c.endpoint = srv.URL
	if _, err := c.SendDoctorBookingAlert(context.Background(), sampleBooking()); err == nil {
		t.Fatalf("expected error on 400")
	}
}

func TestBrevoRequiresRecipient(t *testing.T) {
	c := NewBrevoClient("key", "clinic@example.com", "Clinic", false)
	c.endpoint = "http://127.0.0.1:0"
	b := sampleBooking()
	b.Doctor.Email = ""
	if _, err := c.SendDoctorBookingAlert(context.Background(), b); !errors.Is(err, ErrMissingRecipient) {
		t.Fatalf("expected ErrMissingRecipient, got %v", err)
	}
}

func TestNewBrevoClientDisabledWithoutKey(t *testing.T) {
	if NewBrevoClient("", "clinic@example.com", "", false) != nil {
		t.Fatalf("expected nil client without api key")
	}
}

func TestBuildEventMessage(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	msg, err := buildEventMessage(EventAppointmentBooked, sampleBooking(), now)
	if err != nil {
		t.Fatalf("buildEventMessage error: %v", err)
	}
	if string(msg.Key) != "appt-1" {
		t.Fatalf("expected appointment key, got %q", msg.Key)
	}
	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	if headers["event_type"] != EventAppointmentBooked || headers["event_id"] == "" {
		t.Fatalf("unexpected headers: %v", headers)
	}
	var event AppointmentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if event.EventID != headers["event_id"] || event.StartTime != "09:00" || event.DoctorID != "doc-1" {
		t.Fatalf("unexpected event: %+v", event)
	}
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaPublisherWrites(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, topic: "appointments", now: time.Now}
	if err := p.Publish(context.Background(), EventAppointmentCancelled, sampleBooking()); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
}

type fakeMailer struct {
	sent []string
	err  error
}

func (f *fakeMailer) record(kind string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, kind)
	return "id-" + kind, nil
}

func (f *fakeMailer) SendBookingConfirmation(ctx context.Context, b Booking) (string, error) {
	return f.record("patient")
}

func (f *fakeMailer) SendDoctorBookingAlert(ctx context.Context, b Booking) (string, error) {
	return f.record("doctor")
}

func (f *fakeMailer) SendCancellationNotice(ctx context.Context, b Booking) (string, error) {
	return f.record("cancel")
}

func TestDispatcherAttemptsEveryChannel(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mailErr := errors.New("smtp down")
	mailer := &fakeMailer{err: mailErr}
	w := &fakeWriter{}
	d := NewDispatcher(mailer, &KafkaPublisher{writer: w, topic: "t", now: time.Now}, log)

	err := d.NotifyBooked(context.Background(), sampleBooking())
	if !errors.Is(err, mailErr) {
		t.Fatalf("expected mail error, got %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("event must be published despite mail failure")
	}

	ok := &fakeMailer{}
	d = NewDispatcher(ok, nil, log)
	if err := d.NotifyBooked(context.Background(), sampleBooking()); err != nil {
		t.Fatalf("NotifyBooked error: %v", err)
	}
	if len(ok.sent) != 2 || ok.sent[0] != "patient" || ok.sent[1] != "doctor" {
		t.Fatalf("unexpected sends: %v", ok.sent)
	}
	if err := d.NotifyCancelled(context.Background(), sampleBooking()); err != nil {
		t.Fatalf("NotifyCancelled error: %v", err)
	}
	if ok.sent[2] != "cancel" {
		t.Fatalf("expected cancellation notice, got %v", ok.sent)
	}
}
