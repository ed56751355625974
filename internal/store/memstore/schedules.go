package memstore

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strconv"

	"github.com/Ritika1223/jensieBackend/internal/models"
	"github.com/Ritika1223/jensieBackend/internal/store"
)

type templateRepo struct{ d *DB }

func templateKey(doctorID string, day int) string {
	return doctorID + "|" + strconv.Itoa(day)
}

func (r templateRepo) Upsert(ctx context.Context, t models.ScheduleTemplate) (models.ScheduleTemplate, error) {
	defer r.d.lock(ctx)()
	key := templateKey(t.DoctorID, t.DayOfWeek)
	if existing, ok := r.d.templates[key]; ok {
		t.ID = existing.ID
	} else if t.ID == "" {
		t.ID = r.d.nextID()
	}
	t.Periods = slices.Clone(t.Periods)
	r.d.templates[key] = t
	return t, nil
}

func (r templateRepo) Get(ctx context.Context, doctorID string, dayOfWeek int) (models.ScheduleTemplate, error) {
	defer r.d.lock(ctx)()
	t, ok := r.d.templates[templateKey(doctorID, dayOfWeek)]
	if !ok {
		return models.ScheduleTemplate{}, store.ErrNotFound
	}
	t.Periods = slices.Clone(t.Periods)
	return t, nil
}

func (r templateRepo) ListByDoctor(ctx context.Context, doctorID string) ([]models.ScheduleTemplate, error) {
	defer r.d.lock(ctx)()
	out := make([]models.ScheduleTemplate, 0)
	for _, t := range r.d.templates {
		if t.DoctorID == doctorID {
			t.Periods = slices.Clone(t.Periods)
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DayOfWeek < out[j].DayOfWeek })
	return out, nil
}

func (r templateRepo) DoctorIDs(ctx context.Context) ([]string, error) {
	defer r.d.lock(ctx)()
	seen := make(map[string]bool)
	for _, t := range r.d.templates {
		if t.IsAvailable {
			seen[t.DoctorID] = true
		}
	}
	return slices.Sorted(maps.Keys(seen)), nil
}

type overrideRepo struct{ d *DB }

func (r overrideRepo) Upsert(ctx context.Context, o models.ScheduleOverride) (models.ScheduleOverride, error) {
	defer r.d.lock(ctx)()
	key := o.DoctorID + "|" + o.Date
	if existing, ok := r.d.overrides[key]; ok {
		o.ID = existing.ID
	} else if o.ID == "" {
		o.ID = r.d.nextID()
	}
	o.SlotAvailability = maps.Clone(o.SlotAvailability)
	r.d.overrides[key] = o
	return o, nil
}

func (r overrideRepo) Get(ctx context.Context, doctorID, date string) (models.ScheduleOverride, error) {
	defer r.d.lock(ctx)()
	o, ok := r.d.overrides[doctorID+"|"+date]
	if !ok {
		return models.ScheduleOverride{}, store.ErrNotFound
	}
	o.SlotAvailability = maps.Clone(o.SlotAvailability)
	return o, nil
}

func (r overrideRepo) ListRange(ctx context.Context, doctorID, from, to string) ([]models.ScheduleOverride, error) {
	defer r.d.lock(ctx)()
	out := make([]models.ScheduleOverride, 0)
	for _, o := range r.d.overrides {
		if o.DoctorID == doctorID && o.Date >= from && o.Date <= to {
			o.SlotAvailability = maps.Clone(o.SlotAvailability)
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

type unavailabilityRepo struct{ d *DB }

func (r unavailabilityRepo) Create(ctx context.Context, w models.UnavailabilityWindow) error {
	defer r.d.lock(ctx)()
	if w.ID == "" {
		w.ID = r.d.nextID()
	}
	r.d.windows = append(r.d.windows, w)
	return nil
}

func (r unavailabilityRepo) ListByDoctor(ctx context.Context, doctorID string) ([]models.UnavailabilityWindow, error) {
	defer r.d.lock(ctx)()
	out := make([]models.UnavailabilityWindow, 0)
	for _, w := range r.d.windows {
		if w.DoctorID == doctorID {
			out = append(out, w)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartDate < out[j].StartDate })
	return out, nil
}

type doctorRepo struct{ d *DB }

func (r doctorRepo) Get(ctx context.Context, id string) (models.Doctor, error) {
	defer r.d.lock(ctx)()
	doc, ok := r.d.doctors[id]
	if !ok {
		return models.Doctor{}, store.ErrNotFound
	}
	return doc, nil
}

func (r doctorRepo) Create(ctx context.Context, doctor models.Doctor) error {
	defer r.d.lock(ctx)()
	if _, exists := r.d.doctors[doctor.ID]; exists {
		return store.ErrDuplicate
	}
	r.d.doctors[doctor.ID] = doctor
	return nil
}

type userRepo struct{ d *DB }

func (r userRepo) Get(ctx context.Context, id string) (models.User, error) {
	defer r.d.lock(ctx)()
	u, ok := r.d.users[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return u, nil
}

func (r userRepo) Create(ctx context.Context, user models.User) error {
	defer r.d.lock(ctx)()
	if _, exists := r.d.users[user.ID]; exists {
		return store.ErrDuplicate
	}
	r.d.users[user.ID] = user
	return nil
}
