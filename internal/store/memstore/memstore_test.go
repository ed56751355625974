package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Ritika1223/jensieBackend/internal/models"
	"github.com/Ritika1223/jensieBackend/internal/store"
)

func slot(id, date, start string) models.TimeSlot {
	return models.TimeSlot{ID: id, DoctorID: "doc-1", Date: date, StartTime: start, Status: models.SlotStatusAvailable}
}

func TestInsertManyCountsDuplicates(t *testing.T) {
	st := New()
	ctx := context.Background()

	res, err := st.Slots.InsertMany(ctx, []models.TimeSlot{slot("a", "2026-03-02", "09:00"), slot("b", "2026-03-02", "09:30")})
	if err != nil {
		t.Fatalf("InsertMany error: %v", err)
	}
	if res.Inserted != 2 || res.Duplicates != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}

	res, err = st.Slots.InsertMany(ctx, []models.TimeSlot{slot("c", "2026-03-02", "09:00"), slot("d", "2026-03-02", "10:00")})
	if err != nil {
		t.Fatalf("InsertMany error: %v", err)
	}
	if res.Inserted != 1 || res.Duplicates != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestTransactionRollsBack(t *testing.T) {
	st := New()
	ctx := context.Background()
	if _, err := st.Slots.InsertMany(ctx, []models.TimeSlot{slot("a", "2026-03-02", "09:00")}); err != nil {
		t.Fatalf("InsertMany error: %v", err)
	}

	boom := errors.New("boom")
	err := st.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		ok, err := st.Slots.Claim(ctx, "a", "appt-1", models.BookingVideoCall, time.Now())
		if err != nil || !ok {
			t.Fatalf("claim inside tx failed: %v %v", ok, err)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, err := st.Slots.GetByID(ctx, "a")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.Status != models.SlotStatusAvailable || got.AppointmentID != nil {
		t.Fatalf("expected rollback, got %+v", got)
	}
}

func TestClaimOnlyOnce(t *testing.T) {
	st := New()
	ctx := context.Background()
	_, _ = st.Slots.InsertMany(ctx, []models.TimeSlot{slot("a", "2026-03-02", "09:00")})

	ok, _ := st.Slots.Claim(ctx, "a", "appt-1", models.BookingClinicVisit, time.Now())
	if !ok {
		t.Fatalf("expected first claim to win")
	}
	ok, _ = st.Slots.Claim(ctx, "a", "appt-2", models.BookingClinicVisit, time.Now())
	if ok {
		t.Fatalf("expected second claim to lose")
	}

	released, _ := st.Slots.Release(ctx, "a", "appt-2", models.SlotStatusAvailable, time.Now())
	if released {
		t.Fatalf("release must check the bound appointment")
	}
	released, _ = st.Slots.Release(ctx, "a", "appt-1", models.SlotStatusAvailable, time.Now())
	if !released {
		t.Fatalf("expected release")
	}
}

func TestDeleteUnbookedKeepsBooked(t *testing.T) {
	st := New()
	ctx := context.Background()
	_, _ = st.Slots.InsertMany(ctx, []models.TimeSlot{
		slot("a", "2026-03-02", "09:00"),
		slot("b", "2026-03-02", "09:30"),
		slot("c", "2026-03-03", "09:00"),
	})
	_, _ = st.Slots.Claim(ctx, "b", "appt-1", models.BookingVoiceCall, time.Now())

	n, err := st.Slots.DeleteUnbooked(ctx, "doc-1", "2026-03-02")
	if err != nil {
		t.Fatalf("DeleteUnbooked error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 deletion, got %d", n)
	}
	left, _ := st.Slots.List(ctx, store.SlotFilter{DoctorID: "doc-1"})
	if len(left) != 2 || left[0].ID != "b" || left[1].ID != "c" {
		t.Fatalf("unexpected remaining slots: %+v", left)
	}

	res, _ := st.Slots.InsertMany(ctx, []models.TimeSlot{slot("a2", "2026-03-02", "09:00")})
	if res.Inserted != 1 {
		t.Fatalf("deleted slot key must be free again: %+v", res)
	}
}

func TestAppointmentConfirmedSlotUnique(t *testing.T) {
	st := New()
	ctx := context.Background()
	first := models.Appointment{ID: "a1", TimeSlotID: "s1", Status: models.AppointmentStatusConfirmed}
	if err := st.Appointments.Create(ctx, first); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	second := models.Appointment{ID: "a2", TimeSlotID: "s1", Status: models.AppointmentStatusConfirmed}
	if err := st.Appointments.Create(ctx, second); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}

	if _, err := st.Appointments.MarkCancelled(ctx, "a1", models.CancelledByUser, "", time.Now()); err != nil {
		t.Fatalf("MarkCancelled error: %v", err)
	}
	if err := st.Appointments.Create(ctx, second); err != nil {
		t.Fatalf("slot should be bookable after cancellation: %v", err)
	}
}

func TestAppointmentFilterBySlotIDs(t *testing.T) {
	st := New()
	ctx := context.Background()
	_ = st.Appointments.Create(ctx, models.Appointment{ID: "a1", DoctorID: "d", TimeSlotID: "s1", Status: models.AppointmentStatusConfirmed})

	n, _ := st.Appointments.Count(ctx, store.AppointmentFilter{DoctorID: "d", TimeSlotIDs: []string{}})
	if n != 0 {
		t.Fatalf("empty slot id set must match nothing, got %d", n)
	}
	n, _ = st.Appointments.Count(ctx, store.AppointmentFilter{DoctorID: "d"})
	if n != 1 {
		t.Fatalf("nil slot id set must not filter, got %d", n)
	}
}
