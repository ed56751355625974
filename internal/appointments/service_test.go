package appointments

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Ritika1223/jensieBackend/internal/apperr"
	"github.com/Ritika1223/jensieBackend/internal/auth"
	"github.com/Ritika1223/jensieBackend/internal/models"
	"github.com/Ritika1223/jensieBackend/internal/notifications"
	"github.com/Ritika1223/jensieBackend/internal/store"
	"github.com/Ritika1223/jensieBackend/internal/store/memstore"
	"github.com/Ritika1223/jensieBackend/internal/unavailability"
)

var (
	patient  = auth.Principal{UserID: "user-1", Role: auth.RoleUser}
	stranger = auth.Principal{UserID: "user-2", Role: auth.RoleUser}
	doctor   = auth.Principal{UserID: "doc-1", Role: auth.RoleDoctor}
	admin    = auth.Principal{UserID: "admin", Role: auth.RoleAdmin}
)

type fakeNotifier struct {
	mu        sync.Mutex
	booked    []notifications.Booking
	cancelled []notifications.Booking
	err       error
}

func (f *fakeNotifier) NotifyBooked(ctx context.Context, b notifications.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.booked = append(f.booked, b)
	return f.err
}

func (f *fakeNotifier) NotifyCancelled(ctx context.Context, b notifications.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, b)
	return f.err
}

type recordingInvalidator struct {
	mu    sync.Mutex
	dates []string
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, doctorID, date string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dates = append(r.dates, doctorID+"|"+date)
	return nil
}

type fixture struct {
	st       *store.Store
	svc      *Service
	registry *unavailability.Registry
	notifier *fakeNotifier
	inv      *recordingInvalidator
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := memstore.New()
	reg := unavailability.NewRegistry(st, loc, log)
	svc := NewService(st, reg, loc, log)
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 8, 0, 0, 0, loc) }
	n := &fakeNotifier{}
	inv := &recordingInvalidator{}
	svc.SetNotifier(n)
	svc.SetInvalidator(inv)

	ctx := context.Background()
	if err := st.Doctors.Create(ctx, models.Doctor{ID: "doc-1", Name: "Asha Rao", Email: "asha@example.com", Fee: 700}); err != nil {
		t.Fatalf("create doctor: %v", err)
	}
	if err := st.Doctors.Create(ctx, models.Doctor{ID: "doc-2", Name: "Vikram Shah", Fee: 400}); err != nil {
		t.Fatalf("create doctor: %v", err)
	}
	if err := st.Users.Create(ctx, models.User{ID: "user-1", Name: "Ravi", Email: "ravi@example.com"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	_, err = st.Slots.InsertMany(ctx, []models.TimeSlot{
		{ID: "slot-past", DoctorID: "doc-1", Date: "2026-03-02", StartTime: "07:30", EndTime: "08:00", Label: "7:30 AM", Period: models.PeriodMorning, Status: models.SlotStatusAvailable},
		{ID: "slot-1", DoctorID: "doc-1", Date: "2026-03-02", StartTime: "09:00", EndTime: "09:30", Label: "9:00 AM", Period: models.PeriodMorning, Status: models.SlotStatusAvailable},
		{ID: "slot-2", DoctorID: "doc-1", Date: "2026-03-03", StartTime: "09:00", EndTime: "09:30", Label: "9:00 AM", Period: models.PeriodMorning, Status: models.SlotStatusAvailable},
		{ID: "slot-cancelled", DoctorID: "doc-1", Date: "2026-03-03", StartTime: "10:00", EndTime: "10:30", Label: "10:00 AM", Period: models.PeriodMorning, Status: models.SlotStatusCancelled},
		{ID: "slot-ghost", DoctorID: "doc-9", Date: "2026-03-03", StartTime: "10:00", EndTime: "10:30", Label: "10:00 AM", Period: models.PeriodMorning, Status: models.SlotStatusAvailable},
	})
	if err != nil {
		t.Fatalf("insert slots: %v", err)
	}
	return fixture{st: st, svc: svc, registry: reg, notifier: n, inv: inv}
}

func reserve(doctorID, slotID string) ReserveRequest {
	return ReserveRequest{DoctorID: doctorID, TimeSlotID: slotID, AppointmentType: models.BookingVideoCall, Notes: "fever"}
}

func TestReserveBooksSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.svc.Reserve(ctx, patient, reserve("doc-1", "slot-1"))
	if err != nil {
		t.Fatalf("Reserve error: %v", err)
	}
	if view.Status != models.AppointmentStatusConfirmed || view.ConsultationFee != 700 || view.UserID != "user-1" {
		t.Fatalf("unexpected appointment: %+v", view.Appointment)
	}
	if view.PaymentStatus != models.PaymentStatusPending {
		t.Fatalf("expected pending payment, got %q", view.PaymentStatus)
	}

	slot, err := f.st.Slots.GetByID(ctx, "slot-1")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if slot.Status != models.SlotStatusBooked || slot.AppointmentID == nil || *slot.AppointmentID != view.ID {
		t.Fatalf("slot not bound to appointment: %+v", slot)
	}
	if slot.BookingType == nil || *slot.BookingType != models.BookingVideoCall {
		t.Fatalf("unexpected booking type: %+v", slot.BookingType)
	}

	f.svc.Wait()
	if len(f.notifier.booked) != 1 {
		t.Fatalf("expected one booking notification, got %d", len(f.notifier.booked))
	}
	sent := f.notifier.booked[0]
	if sent.Patient.Email != "ravi@example.com" || sent.Doctor.Name != "Asha Rao" || sent.Slot.StartTime != "09:00" {
		t.Fatalf("notification not enriched: %+v", sent)
	}
	if len(f.inv.dates) != 1 || f.inv.dates[0] != "doc-1|2026-03-02" {
		t.Fatalf("unexpected invalidations: %v", f.inv.dates)
	}
}

func TestReserveFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  ReserveRequest
		want error
		kind error
	}{
		{"missing slot", reserve("doc-1", "nope"), ErrSlotNotFound, apperr.ErrNotFound},
		{"cancelled slot", reserve("doc-1", "slot-cancelled"), ErrSlotUnavailable, apperr.ErrConflict},
		{"other doctor", reserve("doc-2", "slot-2"), ErrSlotMismatch, apperr.ErrConflict},
		{"past slot", reserve("doc-1", "slot-past"), ErrPastSlot, apperr.ErrValidation},
		{"unknown doctor", reserve("doc-9", "slot-ghost"), ErrDoctorNotFound, apperr.ErrNotFound},
		{"bad type", ReserveRequest{DoctorID: "doc-1", TimeSlotID: "slot-2", AppointmentType: "house_call"}, ErrInvalidAppointmentType, apperr.ErrValidation},
	}
	for _, tc := range cases {
		_, err := f.svc.Reserve(ctx, patient, tc.req)
		if !errors.Is(err, tc.want) || !errors.Is(err, tc.kind) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	total, err := f.st.Appointments.Count(ctx, store.AppointmentFilter{})
	if err != nil {
		t.Fatalf("Count error: %v", err)
	}
	if total != 0 {
		t.Fatalf("failed reservations must not create appointments, got %d", total)
	}
	slot, _ := f.st.Slots.GetByID(ctx, "slot-past")
	if slot.Status != models.SlotStatusAvailable {
		t.Fatalf("past slot must stay untouched: %+v", slot)
	}
}

func TestReserveConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const attempts = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Reserve(ctx, patient, reserve("doc-1", "slot-2"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrSlotUnavailable):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	f.svc.Wait()

	if successes != 1 || conflicts != attempts-1 {
		t.Fatalf("expected 1 success and %d conflicts, got %d and %d", attempts-1, successes, conflicts)
	}
	total, _ := f.st.Appointments.Count(ctx, store.AppointmentFilter{})
	if total != 1 {
		t.Fatalf("expected a single appointment, got %d", total)
	}
}

func TestReserveThenCancelRestoresSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	before, _ := f.st.Slots.GetByID(ctx, "slot-2")
	view, err := f.svc.Reserve(ctx, patient, reserve("doc-1", "slot-2"))
	if err != nil {
		t.Fatalf("Reserve error: %v", err)
	}

	cancelled, err := f.svc.Cancel(ctx, patient, view.ID, "travelling")
	if err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if cancelled.Status != models.AppointmentStatusCancelled || cancelled.CancelledBy != models.CancelledByUser {
		t.Fatalf("unexpected cancellation: %+v", cancelled.Appointment)
	}
	if cancelled.CancelledAt == nil || cancelled.CancellationReason != "travelling" {
		t.Fatalf("cancellation not stamped: %+v", cancelled.Appointment)
	}

	after, _ := f.st.Slots.GetByID(ctx, "slot-2")
	if after.Status != before.Status || after.AppointmentID != nil || after.BookingType != nil {
		t.Fatalf("slot not restored: %+v", after)
	}

	_, err = f.svc.Cancel(ctx, patient, view.ID, "")
	if !errors.Is(err, ErrAlreadyCancelled) || !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected ErrAlreadyCancelled as a conflict, got %v", err)
	}

	again, err := f.svc.Reserve(ctx, patient, reserve("doc-1", "slot-2"))
	if err != nil {
		t.Fatalf("rebooking a released slot failed: %v", err)
	}
	if again.ID == view.ID {
		t.Fatalf("expected a new appointment id")
	}
	f.svc.Wait()
	if len(f.notifier.cancelled) != 1 {
		t.Fatalf("expected one cancellation notification, got %d", len(f.notifier.cancelled))
	}
}

func TestCancelByStrangerIsForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.svc.Reserve(ctx, patient, reserve("doc-1", "slot-1"))
	if err != nil {
		t.Fatalf("Reserve error: %v", err)
	}
	if _, err := f.svc.Cancel(ctx, stranger, view.ID, ""); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	otherDoctor := auth.Principal{UserID: "doc-2", Role: auth.RoleDoctor}
	if _, err := f.svc.Cancel(ctx, otherDoctor, view.ID, ""); !errors.Is(err, apperr.ErrForbidden) {
		t.Fatalf("expected forbidden for unrelated doctor, got %v", err)
	}

	slot, _ := f.st.Slots.GetByID(ctx, "slot-1")
	if slot.Status != models.SlotStatusBooked {
		t.Fatalf("slot must stay booked, got %s", slot.Status)
	}

	byDoctor, err := f.svc.Cancel(ctx, doctor, view.ID, "emergency")
	if err != nil {
		t.Fatalf("Cancel by doctor error: %v", err)
	}
	if byDoctor.CancelledBy != models.CancelledByDoctor {
		t.Fatalf("expected doctor as canceller, got %q", byDoctor.CancelledBy)
	}
}

func TestCancelMissingAppointment(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Cancel(context.Background(), admin, "missing", ""); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCancelToleratesMissingSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orphan := models.Appointment{
		ID:         "appt-orphan",
		UserID:     "user-1",
		DoctorID:   "doc-1",
		TimeSlotID: "slot-deleted",
		Status:     models.AppointmentStatusConfirmed,
		CreatedAt:  time.Now(),
	}
	if err := f.st.Appointments.Create(ctx, orphan); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	view, err := f.svc.Cancel(ctx, admin, orphan.ID, "cleanup")
	if err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if view.Status != models.AppointmentStatusCancelled || view.CancelledBy != models.CancelledByAdmin || view.Slot != nil {
		t.Fatalf("unexpected result: %+v", view)
	}
}

func TestCancelKeepsSlotWithdrawnWhenDoctorUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.svc.Reserve(ctx, patient, reserve("doc-1", "slot-2"))
	if err != nil {
		t.Fatalf("Reserve error: %v", err)
	}
	if _, err := f.registry.Mark(ctx, unavailability.MarkRequest{DoctorID: "doc-1", StartDate: "2026-03-03", EndDate: "2026-03-03", Reason: "conference"}); err != nil {
		t.Fatalf("Mark error: %v", err)
	}
	booked, _ := f.st.Slots.GetByID(ctx, "slot-2")
	if booked.Status != models.SlotStatusBooked {
		t.Fatalf("marking unavailable must not touch booked slots, got %s", booked.Status)
	}

	if _, err := f.svc.Cancel(ctx, patient, view.ID, ""); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	slot, _ := f.st.Slots.GetByID(ctx, "slot-2")
	if slot.Status != models.SlotStatusCancelled || slot.AppointmentID != nil {
		t.Fatalf("expected withdrawn slot, got %+v", slot)
	}
}

func TestNotifierFailureDoesNotFailBooking(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("smtp down")

	view, err := f.svc.Reserve(context.Background(), patient, reserve("doc-1", "slot-1"))
	if err != nil {
		t.Fatalf("Reserve error: %v", err)
	}
	f.svc.Wait()

	stored, err := f.st.Appointments.GetByID(context.Background(), view.ID)
	if err != nil {
		t.Fatalf("appointment must persist: %v", err)
	}
	if stored.Status != models.AppointmentStatusConfirmed {
		t.Fatalf("unexpected status %s", stored.Status)
	}
}

func TestGetAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Reserve(ctx, patient, reserve("doc-1", "slot-1"))
	if err != nil {
		t.Fatalf("Reserve error: %v", err)
	}
	if _, err := f.svc.Reserve(ctx, patient, reserve("doc-1", "slot-2")); err != nil {
		t.Fatalf("Reserve error: %v", err)
	}

	got, err := f.svc.Get(ctx, doctor, first.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Slot == nil || got.Slot.ID != "slot-1" {
		t.Fatalf("expected slot attached: %+v", got)
	}
	if _, err := f.svc.Get(ctx, stranger, first.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	mine, err := f.svc.ListForUser(ctx, patient, "", 10, 0)
	if err != nil {
		t.Fatalf("ListForUser error: %v", err)
	}
	if mine.Total != 2 || len(mine.Items) != 2 {
		t.Fatalf("expected 2 appointments, got %+v", mine)
	}
	empty, err := f.svc.ListForUser(ctx, stranger, "", 10, 0)
	if err != nil {
		t.Fatalf("ListForUser error: %v", err)
	}
	if empty.Total != 0 {
		t.Fatalf("stranger must see nothing, got %d", empty.Total)
	}

	day, err := f.svc.ListForDoctor(ctx, doctor, "doc-1", "", "2026-03-03", 10, 0)
	if err != nil {
		t.Fatalf("ListForDoctor error: %v", err)
	}
	if day.Total != 1 || day.Items[0].TimeSlotID != "slot-2" {
		t.Fatalf("unexpected day listing: %+v", day)
	}
	none, err := f.svc.ListForDoctor(ctx, admin, "doc-1", "", "2026-03-09", 10, 0)
	if err != nil {
		t.Fatalf("ListForDoctor error: %v", err)
	}
	if none.Total != 0 {
		t.Fatalf("expected no appointments on an empty day, got %d", none.Total)
	}

	if _, err := f.svc.ListForDoctor(ctx, patient, "doc-1", "", "", 10, 0); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := f.svc.ListForUser(ctx, patient, "done", 10, 0); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	f.svc.Wait()
}
