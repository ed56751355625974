// Package unavailability records periods when a doctor cannot be booked and
// answers whether a date or range is blocked.
package unavailability

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Ritika1223/jensieBackend/internal/apperr"
	"github.com/Ritika1223/jensieBackend/internal/models"
	"github.com/Ritika1223/jensieBackend/internal/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Invalidator drops derived read models for a doctor after slots change.
type Invalidator interface {
	InvalidateDoctor(ctx context.Context, doctorID string) error
}

type MarkRequest struct {
	DoctorID    string
	StartDate   string
	EndDate     string
	Reason      string
	Type        string
	IsRecurring bool
}

type MarkResult struct {
	Window         models.UnavailabilityWindow `json:"window"`
	SlotsCancelled int64                       `json:"slotsCancelled"`
}

type Registry struct {
	repo        store.UnavailabilityRepository
	slots       store.SlotRepository
	tx          store.Transactor
	invalidator Invalidator
	location    *time.Location
	log         *slog.Logger
	now         func() time.Time
}

func NewRegistry(st *store.Store, location *time.Location, log *slog.Logger) *Registry {
	return &Registry{
		repo:     st.Unavailability,
		slots:    st.Slots,
		tx:       st.Tx,
		location: location,
		log:      log,
		now:      time.Now,
	}
}

func (r *Registry) SetInvalidator(inv Invalidator) {
	r.invalidator = inv
}

// Mark persists a window and cancels the doctor's available slots dated inside
// it. Booked slots are left untouched.
func (r *Registry) Mark(ctx context.Context, req MarkRequest) (MarkResult, error) {
	req.DoctorID = strings.TrimSpace(req.DoctorID)
	if req.DoctorID == "" {
		return MarkResult{}, apperr.Validation("doctorId is required")
	}
	if _, ok := parseDay(req.StartDate); !ok {
		return MarkResult{}, apperr.Validation("invalid startDate")
	}
	if _, ok := parseDay(req.EndDate); !ok {
		return MarkResult{}, apperr.Validation("invalid endDate")
	}
	if req.StartDate > req.EndDate {
		return MarkResult{}, apperr.Validation("startDate must not be after endDate")
	}
	kind := strings.TrimSpace(req.Type)
	if kind == "" {
		kind = models.UnavailabilityTypeOther
	}

	now := r.now().In(r.location)
	window := models.UnavailabilityWindow{
		ID:          primitive.NewObjectID().Hex(),
		DoctorID:    req.DoctorID,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Reason:      strings.TrimSpace(req.Reason),
		Type:        kind,
		IsRecurring: req.IsRecurring,
		CreatedAt:   now,
	}

	var cancelled int64
	err := r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := r.repo.Create(ctx, window); err != nil {
			return err
		}
		n, err := r.slots.CancelAvailable(ctx, window.DoctorID, window.StartDate, window.EndDate, now)
		if err != nil {
			return err
		}
		cancelled = n
		return nil
	})
	if err != nil {
		return MarkResult{}, err
	}

	if r.invalidator != nil {
		if err := r.invalidator.InvalidateDoctor(ctx, window.DoctorID); err != nil {
			r.log.Warn("unavailability mark: cache invalidation failed",
				slog.String("doctor_id", window.DoctorID),
				slog.String("error", err.Error()),
			)
		}
	}

	r.log.Info("unavailability mark: ok",
		slog.String("doctor_id", window.DoctorID),
		slog.String("start_date", window.StartDate),
		slog.String("end_date", window.EndDate),
		slog.Bool("recurring", window.IsRecurring),
		slog.Int64("slots_cancelled", cancelled),
	)
	return MarkResult{Window: window, SlotsCancelled: cancelled}, nil
}

// List returns the doctor's windows. When both bounds are given only windows
// blocking a day inside [from, to] are returned.
func (r *Registry) List(ctx context.Context, doctorID, from, to string) ([]models.UnavailabilityWindow, error) {
	if (from == "") != (to == "") {
		return nil, apperr.Validation("startDate and endDate must be given together")
	}
	if from != "" {
		if _, ok := parseDay(from); !ok {
			return nil, apperr.Validation("invalid startDate")
		}
		if _, ok := parseDay(to); !ok {
			return nil, apperr.Validation("invalid endDate")
		}
		if from > to {
			return nil, apperr.Validation("startDate must not be after endDate")
		}
	}

	windows, err := r.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if from == "" {
		return windows, nil
	}
	out := make([]models.UnavailabilityWindow, 0, len(windows))
	for _, w := range windows {
		if Overlaps(w, from, to) {
			out = append(out, w)
		}
	}
	return out, nil
}

// ForDoctor loads every window of the doctor for repeated coverage checks.
func (r *Registry) ForDoctor(ctx context.Context, doctorID string) (Windows, error) {
	windows, err := r.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	return Windows(windows), nil
}

// CoveringWindow returns the first window that blocks any day of [from, to].
func (r *Registry) CoveringWindow(ctx context.Context, doctorID, from, to string) (models.UnavailabilityWindow, bool, error) {
	windows, err := r.ForDoctor(ctx, doctorID)
	if err != nil {
		return models.UnavailabilityWindow{}, false, err
	}
	w, ok := windows.Covering(from, to)
	return w, ok, nil
}
