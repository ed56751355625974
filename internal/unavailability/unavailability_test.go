package unavailability

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Ritika1223/jensieBackend/internal/apperr"
	"github.com/Ritika1223/jensieBackend/internal/models"
	"github.com/Ritika1223/jensieBackend/internal/store"
	"github.com/Ritika1223/jensieBackend/internal/store/memstore"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCoversOneOff(t *testing.T) {
	w := models.UnavailabilityWindow{StartDate: "2026-03-10", EndDate: "2026-03-12"}
	for date, want := range map[string]bool{
		"2026-03-09": false,
		"2026-03-10": true,
		"2026-03-12": true,
		"2026-03-13": false,
		"2027-03-11": false,
	} {
		if got := Covers(w, date); got != want {
			t.Fatalf("%s: expected %v, got %v", date, want, got)
		}
	}
}

func TestCoversRecurring(t *testing.T) {
	w := models.UnavailabilityWindow{StartDate: "2025-08-15", EndDate: "2025-08-16", IsRecurring: true}
	for date, want := range map[string]bool{
		"2026-08-15": true,
		"2026-08-16": true,
		"2026-08-17": false,
		"2030-08-15": true,
		"2026-08-14": false,
	} {
		if got := Covers(w, date); got != want {
			t.Fatalf("%s: expected %v, got %v", date, want, got)
		}
	}
}

func TestCoversRecurringAcrossNewYear(t *testing.T) {
	w := models.UnavailabilityWindow{StartDate: "2025-12-30", EndDate: "2026-01-02", IsRecurring: true}
	for date, want := range map[string]bool{
		"2026-12-31": true,
		"2027-01-01": true,
		"2027-01-02": true,
		"2027-01-03": false,
		"2027-12-29": false,
	} {
		if got := Covers(w, date); got != want {
			t.Fatalf("%s: expected %v, got %v", date, want, got)
		}
	}
}

func TestWindowsCovering(t *testing.T) {
	ws := Windows{
		{ID: "w1", StartDate: "2026-03-10", EndDate: "2026-03-12", Reason: "conference"},
		{ID: "w2", StartDate: "2025-08-15", EndDate: "2025-08-15", IsRecurring: true, Reason: "holiday"},
	}
	if w, ok := ws.Covering("2026-03-01", "2026-03-10"); !ok || w.ID != "w1" {
		t.Fatalf("expected w1, got %+v %v", w, ok)
	}
	if w, ok := ws.Covering("2026-08-10", "2026-08-17"); !ok || w.ID != "w2" {
		t.Fatalf("expected w2, got %+v %v", w, ok)
	}
	if _, ok := ws.Covering("2026-04-01", "2026-04-07"); ok {
		t.Fatalf("expected no covering window")
	}
}

func newRegistry(t *testing.T) (*Registry, *store.Store) {
	t.Helper()
	st := memstore.New()
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return NewRegistry(st, loc, testLogger()), st
}

type countingInvalidator struct {
	doctors []string
}

func (c *countingInvalidator) InvalidateDoctor(ctx context.Context, doctorID string) error {
	c.doctors = append(c.doctors, doctorID)
	return nil
}

func TestMarkCancelsAvailableSlotsOnly(t *testing.T) {
	reg, st := newRegistry(t)
	inv := &countingInvalidator{}
	reg.SetInvalidator(inv)
	ctx := context.Background()

	_, err := st.Slots.InsertMany(ctx, []models.TimeSlot{
		{ID: "in-avail", DoctorID: "doc-1", Date: "2026-03-10", StartTime: "09:00", Status: models.SlotStatusAvailable},
		{ID: "in-booked", DoctorID: "doc-1", Date: "2026-03-11", StartTime: "09:00", Status: models.SlotStatusAvailable},
		{ID: "outside", DoctorID: "doc-1", Date: "2026-03-13", StartTime: "09:00", Status: models.SlotStatusAvailable},
		{ID: "other-doc", DoctorID: "doc-2", Date: "2026-03-10", StartTime: "09:00", Status: models.SlotStatusAvailable},
	})
	if err != nil {
		t.Fatalf("InsertMany error: %v", err)
	}
	if ok, _ := st.Slots.Claim(ctx, "in-booked", "appt-1", models.BookingClinicVisit, time.Now()); !ok {
		t.Fatalf("claim failed")
	}

	res, err := reg.Mark(ctx, MarkRequest{DoctorID: "doc-1", StartDate: "2026-03-10", EndDate: "2026-03-12", Reason: "conference"})
	if err != nil {
		t.Fatalf("Mark error: %v", err)
	}
	if res.SlotsCancelled != 1 {
		t.Fatalf("expected 1 cancelled slot, got %d", res.SlotsCancelled)
	}
	if res.Window.Type != models.UnavailabilityTypeOther {
		t.Fatalf("expected default type, got %q", res.Window.Type)
	}

	want := map[string]string{
		"in-avail":  models.SlotStatusCancelled,
		"in-booked": models.SlotStatusBooked,
		"outside":   models.SlotStatusAvailable,
		"other-doc": models.SlotStatusAvailable,
	}
	for id, status := range want {
		s, err := st.Slots.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID %s: %v", id, err)
		}
		if s.Status != status {
			t.Fatalf("%s: expected %s, got %s", id, status, s.Status)
		}
	}
	if len(inv.doctors) != 1 || inv.doctors[0] != "doc-1" {
		t.Fatalf("expected invalidation for doc-1, got %v", inv.doctors)
	}
}

func TestMarkRejectsInvertedRange(t *testing.T) {
	reg, st := newRegistry(t)
	_, err := reg.Mark(context.Background(), MarkRequest{DoctorID: "doc-1", StartDate: "2026-03-12", EndDate: "2026-03-10"})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	windows, _ := st.Unavailability.ListByDoctor(context.Background(), "doc-1")
	if len(windows) != 0 {
		t.Fatalf("nothing should be persisted, got %d", len(windows))
	}
}

func TestListFiltersByRange(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()
	for _, req := range []MarkRequest{
		{DoctorID: "doc-1", StartDate: "2026-03-10", EndDate: "2026-03-12"},
		{DoctorID: "doc-1", StartDate: "2026-05-01", EndDate: "2026-05-01"},
		{DoctorID: "doc-1", StartDate: "2024-03-20", EndDate: "2024-03-21", IsRecurring: true},
	} {
		if _, err := reg.Mark(ctx, req); err != nil {
			t.Fatalf("Mark error: %v", err)
		}
	}

	all, err := reg.List(ctx, "doc-1", "", "")
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(all) != 3 || all[0].StartDate != "2024-03-20" {
		t.Fatalf("expected 3 windows ordered by start, got %+v", all)
	}

	march, err := reg.List(ctx, "doc-1", "2026-03-01", "2026-03-31")
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(march) != 2 {
		t.Fatalf("expected one-off and recurring windows in March, got %+v", march)
	}

	if _, err := reg.List(ctx, "doc-1", "2026-03-01", ""); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for half range, got %v", err)
	}
}
