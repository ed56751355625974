package slots

import (
	"context"
	"time"

	"github.com/Ritika1223/jensieBackend/internal/apperr"
	"github.com/Ritika1223/jensieBackend/internal/models"
	"github.com/Ritika1223/jensieBackend/internal/schedule"
	"github.com/Ritika1223/jensieBackend/internal/store"
	"github.com/Ritika1223/jensieBackend/internal/unavailability"
)

const DefaultWindowDays = 7

type AvailabilityResult struct {
	Slots                []models.TimeSlot `json:"slots"`
	IsDoctorAvailable    bool              `json:"isDoctorAvailable"`
	UnavailabilityReason string            `json:"unavailabilityReason,omitempty"`
	UnavailabilityType   string            `json:"unavailabilityType,omitempty"`
	Message              string            `json:"message,omitempty"`
}

type Availability struct {
	slots    store.SlotRepository
	registry *unavailability.Registry
	location *time.Location
	now      func() time.Time
}

func NewAvailability(slots store.SlotRepository, registry *unavailability.Registry, location *time.Location) *Availability {
	return &Availability{slots: slots, registry: registry, location: location, now: time.Now}
}

// ListAvailable returns the doctor's available slots for date, or for the
// next seven days when date is empty, ordered by date then start time.
func (a *Availability) ListAvailable(ctx context.Context, doctorID, date string, period models.Period) (AvailabilityResult, error) {
	if period != "" && !models.IsValidPeriod(period) {
		return AvailabilityResult{}, apperr.Validation("invalid period")
	}

	from, to := date, date
	if date == "" {
		today := schedule.NormalizeDate(a.now(), a.location)
		from = schedule.FormatDate(today)
		to = schedule.FormatDate(today.AddDate(0, 0, DefaultWindowDays))
	} else if _, err := schedule.ParseDate(date, a.location); err != nil {
		return AvailabilityResult{}, apperr.Validation("invalid date")
	}

	items, err := a.slots.List(ctx, store.SlotFilter{
		DoctorID: doctorID,
		DateFrom: from,
		DateTo:   to,
		Status:   models.SlotStatusAvailable,
		Period:   period,
	})
	if err != nil {
		return AvailabilityResult{}, err
	}

	res := AvailabilityResult{Slots: items, IsDoctorAvailable: true}
	w, blocked, err := a.registry.CoveringWindow(ctx, doctorID, from, to)
	if err != nil {
		return AvailabilityResult{}, err
	}
	switch {
	case blocked:
		res.IsDoctorAvailable = false
		res.UnavailabilityReason = w.Reason
		res.UnavailabilityType = w.Type
		res.Message = "Doctor is unavailable during the requested period"
	case len(items) == 0:
		res.Message = "No available slots found"
	}
	return res, nil
}
