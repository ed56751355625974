// Package memstore keeps every repository in process memory. Transactions are
// serialized and roll back by restoring a snapshot, which is enough for tests
// and single-instance demos.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Ritika1223/jensieBackend/internal/models"
	"github.com/Ritika1223/jensieBackend/internal/store"
)

type txKey struct{}

type DB struct {
	mu sync.Mutex

	slots        map[string]models.TimeSlot
	slotKeys     map[string]string
	appointments map[string]models.Appointment
	templates    map[string]models.ScheduleTemplate
	overrides    map[string]models.ScheduleOverride
	windows      []models.UnavailabilityWindow
	doctors      map[string]models.Doctor
	users        map[string]models.User
	seq          int
}

func NewDB() *DB {
	return &DB{
		slots:        make(map[string]models.TimeSlot),
		slotKeys:     make(map[string]string),
		appointments: make(map[string]models.Appointment),
		templates:    make(map[string]models.ScheduleTemplate),
		overrides:    make(map[string]models.ScheduleOverride),
		doctors:      make(map[string]models.Doctor),
		users:        make(map[string]models.User),
	}
}

// New returns a store backed by a fresh in-memory database.
func New() *store.Store {
	return NewDB().Store()
}

func (d *DB) Store() *store.Store {
	return &store.Store{
		Tx:             d,
		Slots:          slotRepo{d},
		Appointments:   appointmentRepo{d},
		Templates:      templateRepo{d},
		Overrides:      overrideRepo{d},
		Unavailability: unavailabilityRepo{d},
		Doctors:        doctorRepo{d},
		Users:          userRepo{d},
	}
}

func (d *DB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if d.inTx(ctx) {
		return fn(ctx)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	snap := d.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, d)); err != nil {
		d.restore(snap)
		return err
	}
	return nil
}

func (d *DB) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*DB)
	return owner == d
}

// lock acquires the database unless ctx already runs inside one of its
// transactions.
func (d *DB) lock(ctx context.Context) func() {
	if d.inTx(ctx) {
		return func() {}
	}
	d.mu.Lock()
	return d.mu.Unlock
}

func (d *DB) nextID() string {
	d.seq++
	return "mem-" + strconv.Itoa(d.seq)
}

type snapshot struct {
	slots        map[string]models.TimeSlot
	slotKeys     map[string]string
	appointments map[string]models.Appointment
	templates    map[string]models.ScheduleTemplate
	overrides    map[string]models.ScheduleOverride
	windows      []models.UnavailabilityWindow
	doctors      map[string]models.Doctor
	users        map[string]models.User
	seq          int
}

func (d *DB) snapshot() snapshot {
	return snapshot{
		slots:        maps.Clone(d.slots),
		slotKeys:     maps.Clone(d.slotKeys),
		appointments: maps.Clone(d.appointments),
		templates:    maps.Clone(d.templates),
		overrides:    maps.Clone(d.overrides),
		windows:      slices.Clone(d.windows),
		doctors:      maps.Clone(d.doctors),
		users:        maps.Clone(d.users),
		seq:          d.seq,
	}
}

func (d *DB) restore(s snapshot) {
	d.slots = s.slots
	d.slotKeys = s.slotKeys
	d.appointments = s.appointments
	d.templates = s.templates
	d.overrides = s.overrides
	d.windows = s.windows
	d.doctors = s.doctors
	d.users = s.users
	d.seq = s.seq
}

func slotKey(doctorID, date, startTime string) string {
	return doctorID + "|" + date + "|" + startTime
}

type slotRepo struct{ d *DB }

func (r slotRepo) InsertMany(ctx context.Context, slots []models.TimeSlot) (store.InsertResult, error) {
	defer r.d.lock(ctx)()

	var res store.InsertResult
	for _, s := range slots {
		key := slotKey(s.DoctorID, s.Date, s.StartTime)
		if _, exists := r.d.slotKeys[key]; exists {
			res.Duplicates++
			continue
		}
		if s.ID == "" {
			s.ID = r.d.nextID()
		}
		r.d.slots[s.ID] = s
		r.d.slotKeys[key] = s.ID
		res.Inserted++
	}
	return res, nil
}

func (r slotRepo) GetByID(ctx context.Context, id string) (models.TimeSlot, error) {
	defer r.d.lock(ctx)()
	s, ok := r.d.slots[id]
	if !ok {
		return models.TimeSlot{}, store.ErrNotFound
	}
	return s, nil
}

func (r slotRepo) GetByIDs(ctx context.Context, ids []string) (map[string]models.TimeSlot, error) {
	defer r.d.lock(ctx)()
	out := make(map[string]models.TimeSlot, len(ids))
	for _, id := range ids {
		if s, ok := r.d.slots[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func (r slotRepo) List(ctx context.Context, f store.SlotFilter) ([]models.TimeSlot, error) {
	defer r.d.lock(ctx)()
	out := make([]models.TimeSlot, 0)
	for _, s := range r.d.slots {
		if f.DoctorID != "" && s.DoctorID != f.DoctorID {
			continue
		}
		if f.DateFrom != "" && s.Date < f.DateFrom {
			continue
		}
		if f.DateTo != "" && s.Date > f.DateTo {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		if f.Period != "" && s.Period != f.Period {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (r slotRepo) Claim(ctx context.Context, id, appointmentID, bookingType string, now time.Time) (bool, error) {
	defer r.d.lock(ctx)()
	s, ok := r.d.slots[id]
	if !ok || s.Status != models.SlotStatusAvailable {
		return false, nil
	}
	s.Status = models.SlotStatusBooked
	s.AppointmentID = &appointmentID
	s.BookingType = &bookingType
	s.UpdatedAt = now
	r.d.slots[id] = s
	return true, nil
}

func (r slotRepo) Release(ctx context.Context, id, appointmentID, status string, now time.Time) (bool, error) {
	defer r.d.lock(ctx)()
	s, ok := r.d.slots[id]
	if !ok || s.AppointmentID == nil || *s.AppointmentID != appointmentID {
		return false, nil
	}
	s.Status = status
	s.AppointmentID = nil
	s.BookingType = nil
	s.UpdatedAt = now
	r.d.slots[id] = s
	return true, nil
}

func (r slotRepo) DeleteUnbooked(ctx context.Context, doctorID, date string) (int64, error) {
	defer r.d.lock(ctx)()
	var n int64
	for id, s := range r.d.slots {
		if s.DoctorID != doctorID || s.Date != date || s.Status == models.SlotStatusBooked {
			continue
		}
		delete(r.d.slots, id)
		delete(r.d.slotKeys, slotKey(s.DoctorID, s.Date, s.StartTime))
		n++
	}
	return n, nil
}

func (r slotRepo) CancelAvailable(ctx context.Context, doctorID, from, to string, now time.Time) (int64, error) {
	defer r.d.lock(ctx)()
	var n int64
	for id, s := range r.d.slots {
		if s.DoctorID != doctorID || s.Status != models.SlotStatusAvailable || s.Date < from || s.Date > to {
			continue
		}
		s.Status = models.SlotStatusCancelled
		s.UpdatedAt = now
		r.d.slots[id] = s
		n++
	}
	return n, nil
}

type appointmentRepo struct{ d *DB }

func (r appointmentRepo) Create(ctx context.Context, a models.Appointment) error {
	defer r.d.lock(ctx)()
	if _, exists := r.d.appointments[a.ID]; exists {
		return store.ErrDuplicate
	}
	if a.Status == models.AppointmentStatusConfirmed {
		for _, other := range r.d.appointments {
			if other.TimeSlotID == a.TimeSlotID && other.Status == models.AppointmentStatusConfirmed {
				return store.ErrDuplicate
			}
		}
	}
	r.d.appointments[a.ID] = a
	return nil
}

func (r appointmentRepo) GetByID(ctx context.Context, id string) (models.Appointment, error) {
	defer r.d.lock(ctx)()
	a, ok := r.d.appointments[id]
	if !ok {
		return models.Appointment{}, store.ErrNotFound
	}
	return a, nil
}

func (r appointmentRepo) matching(f store.AppointmentFilter) []models.Appointment {
	var slotIDs map[string]bool
	if f.TimeSlotIDs != nil {
		slotIDs = make(map[string]bool, len(f.TimeSlotIDs))
		for _, id := range f.TimeSlotIDs {
			slotIDs[id] = true
		}
	}
	out := make([]models.Appointment, 0)
	for _, a := range r.d.appointments {
		if f.UserID != "" && a.UserID != f.UserID {
			continue
		}
		if f.DoctorID != "" && a.DoctorID != f.DoctorID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if slotIDs != nil && !slotIDs[a.TimeSlotID] {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r appointmentRepo) List(ctx context.Context, f store.AppointmentFilter, limit, offset int64) ([]models.Appointment, error) {
	defer r.d.lock(ctx)()
	all := r.matching(f)
	if offset >= int64(len(all)) {
		return []models.Appointment{}, nil
	}
	end := int64(len(all))
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

func (r appointmentRepo) Count(ctx context.Context, f store.AppointmentFilter) (int64, error) {
	defer r.d.lock(ctx)()
	return int64(len(r.matching(f))), nil
}

func (r appointmentRepo) MarkCancelled(ctx context.Context, id, cancelledBy, reason string, at time.Time) (models.Appointment, error) {
	defer r.d.lock(ctx)()
	a, ok := r.d.appointments[id]
	if !ok || a.Status == models.AppointmentStatusCancelled {
		return models.Appointment{}, store.ErrNotFound
	}
	a.Status = models.AppointmentStatusCancelled
	a.CancelledAt = &at
	a.CancelledBy = cancelledBy
	a.CancellationReason = reason
	a.UpdatedAt = at
	r.d.appointments[id] = a
	return a, nil
}
