package doctorschedule

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Ritika1223/jensieBackend/internal/apperr"
	"github.com/Ritika1223/jensieBackend/internal/auth"
	"github.com/Ritika1223/jensieBackend/internal/models"
	"github.com/Ritika1223/jensieBackend/internal/slots"
	"github.com/Ritika1223/jensieBackend/internal/store"
	"github.com/Ritika1223/jensieBackend/internal/store/memstore"
	"github.com/Ritika1223/jensieBackend/internal/unavailability"
)

var (
	doctor  = auth.Principal{UserID: "doc-1", Role: auth.RoleDoctor}
	patient = auth.Principal{UserID: "user-1", Role: auth.RoleUser}
	admin   = auth.Principal{UserID: "admin", Role: auth.RoleAdmin}
)

func newService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := memstore.New()
	reg := unavailability.NewRegistry(st, loc, log)
	mat := slots.NewMaterializer(st, reg, loc, log, 0)
	svc := NewService(st, mat, loc, log)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, loc) }
	if err := st.Doctors.Create(context.Background(), models.Doctor{ID: "doc-1", Name: "Asha Rao"}); err != nil {
		t.Fatalf("create doctor: %v", err)
	}
	return svc, st
}

func TestSaveOverrideGeneratesSlots(t *testing.T) {
	svc, st := newService(t)
	ctx := context.Background()

	res, err := svc.SaveOverride(ctx, doctor, SaveOverrideRequest{
		Date:             "2026-03-05",
		IsDayAvailable:   true,
		OpeningTime:      "09:00",
		ClosingTime:      "09:30",
		SlotDuration:     15,
		SlotAvailability: models.SlotToggles{"9:00 AM": false},
	})
	if err != nil {
		t.Fatalf("SaveOverride error: %v", err)
	}
	if res.SlotsGenerated != 1 || res.SlotDuration != 15 {
		t.Fatalf("unexpected result: %+v", res)
	}
	items, _ := st.Slots.List(ctx, store.SlotFilter{DoctorID: "doc-1", DateFrom: "2026-03-05", DateTo: "2026-03-05"})
	if len(items) != 1 || items[0].StartTime != "09:15" || items[0].EndTime != "09:30" {
		t.Fatalf("unexpected slots: %+v", items)
	}

	closed, err := svc.SaveOverride(ctx, doctor, SaveOverrideRequest{Date: "2026-03-05", IsDayAvailable: false})
	if err != nil {
		t.Fatalf("SaveOverride error: %v", err)
	}
	if closed.SlotsGenerated != 0 {
		t.Fatalf("closing the day must clear open slots, got %d", closed.SlotsGenerated)
	}

	overrides, err := svc.GetOverrides(ctx, doctor, "2026-03-01", "2026-03-31")
	if err != nil {
		t.Fatalf("GetOverrides error: %v", err)
	}
	o, ok := overrides["2026-03-05"]
	if !ok || o.IsDayAvailable || len(overrides) != 1 {
		t.Fatalf("unexpected overrides: %+v", overrides)
	}
}

func TestSaveOverrideDefaults(t *testing.T) {
	svc, _ := newService(t)
	res, err := svc.SaveOverride(context.Background(), doctor, SaveOverrideRequest{Date: "2026-03-06", IsDayAvailable: true})
	if err != nil {
		t.Fatalf("SaveOverride error: %v", err)
	}
	if res.OpeningTime != "09:00" || res.ClosingTime != "17:00" || res.SlotDuration != 15 || res.SlotsGenerated != 32 {
		t.Fatalf("unexpected defaults: %+v", res)
	}
}

func TestSaveOverrideRejects(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.SaveOverride(ctx, patient, SaveOverrideRequest{Date: "2026-03-06"}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden for patient, got %v", err)
	}
	cases := []SaveOverrideRequest{
		{Date: "06-03-2026", IsDayAvailable: true},
		{Date: "2026-02-27", IsDayAvailable: true},
		{Date: "2026-03-06", IsDayAvailable: true, SlotDuration: 20},
		{Date: "2026-03-06", IsDayAvailable: true, OpeningTime: "9am"},
	}
	for _, req := range cases {
		if _, err := svc.SaveOverride(ctx, doctor, req); !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("%+v: expected validation error, got %v", req, err)
		}
	}
	if _, err := svc.GetOverrides(ctx, doctor, "2026-03-09", "2026-03-01"); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for inverted range, got %v", err)
	}
}

func TestSaveTemplate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	saved, err := svc.SaveTemplate(ctx, doctor, "doc-1", int(time.Monday), TemplateRequest{
		IsAvailable:    true,
		StartTime:      "09:00",
		EndTime:        "13:00",
		Periods:        []models.Period{models.PeriodMorning},
		BreakStartTime: "11:00",
		BreakEndTime:   "11:30",
	})
	if err != nil {
		t.Fatalf("SaveTemplate error: %v", err)
	}
	if saved.ID == "" || saved.DayOfWeek != 1 {
		t.Fatalf("unexpected template: %+v", saved)
	}

	if _, err := svc.SaveTemplate(ctx, admin, "doc-1", int(time.Monday), TemplateRequest{IsAvailable: false, StartTime: "10:00", EndTime: "12:00"}); err != nil {
		t.Fatalf("admin SaveTemplate error: %v", err)
	}
	list, err := svc.ListTemplates(ctx, "doc-1")
	if err != nil {
		t.Fatalf("ListTemplates error: %v", err)
	}
	if len(list) != 1 || list[0].IsAvailable || list[0].ID != saved.ID {
		t.Fatalf("expected the template to be replaced: %+v", list)
	}

	if _, err := svc.SaveTemplate(ctx, patient, "doc-1", 1, TemplateRequest{StartTime: "09:00", EndTime: "10:00"}); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := svc.SaveTemplate(ctx, doctor, "doc-1", 7, TemplateRequest{StartTime: "09:00", EndTime: "10:00"}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for weekday, got %v", err)
	}
	if _, err := svc.SaveTemplate(ctx, doctor, "doc-1", 2, TemplateRequest{StartTime: "09:00", EndTime: "10:00", Periods: []models.Period{"Brunch"}}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for period, got %v", err)
	}
	if _, err := svc.SaveTemplate(ctx, doctor, "doc-1", 2, TemplateRequest{IsAvailable: true, StartTime: "17:00", EndTime: "09:00"}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for inverted hours, got %v", err)
	}
	if _, err := svc.SaveTemplate(ctx, doctor, "doc-1", 2, TemplateRequest{IsAvailable: true, StartTime: "09:00", EndTime: "09:00"}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for empty hours, got %v", err)
	}
	if _, err := svc.SaveTemplate(ctx, doctor, "doc-1", 2, TemplateRequest{IsAvailable: true, StartTime: "09:00", EndTime: "12:00", BreakStartTime: "20:00", BreakEndTime: "21:00"}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for break outside hours, got %v", err)
	}
	if _, err := svc.SaveTemplate(ctx, admin, "doc-404", 2, TemplateRequest{StartTime: "09:00", EndTime: "10:00"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
