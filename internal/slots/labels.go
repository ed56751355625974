package slots

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/Ritika1223/jensieBackend/internal/cache"
	"github.com/Ritika1223/jensieBackend/internal/models"
	"github.com/Ritika1223/jensieBackend/internal/store"
)

const labelKeyPrefix = "slots:labels:"

type LabelEntry struct {
	SlotID    string        `json:"slotId"`
	StartTime string        `json:"startTime"`
	EndTime   string        `json:"endTime"`
	Label     string        `json:"label"`
	Period    models.Period `json:"period"`
}

// LabelIndex is a read-through cache of the available slot labels of a doctor
// and day. TimeSlot stays the source of truth: a miss or a cache failure reads
// the store, and every slot mutation drops the affected entries.
type LabelIndex struct {
	cache cache.Cache
	slots store.SlotRepository
	ttl   time.Duration
	log   *slog.Logger
}

func NewLabelIndex(c cache.Cache, slots store.SlotRepository, ttl time.Duration, log *slog.Logger) *LabelIndex {
	if c == nil {
		c = cache.NewNoop()
	}
	return &LabelIndex{cache: c, slots: slots, ttl: ttl, log: log}
}

func labelKey(doctorID, date string) string {
	return labelKeyPrefix + doctorID + ":" + date
}

func (l *LabelIndex) Labels(ctx context.Context, doctorID, date string) ([]LabelEntry, error) {
	key := labelKey(doctorID, date)
	raw, ok, err := l.cache.Get(ctx, key)
	if err != nil {
		l.log.Warn("slot labels: cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	if ok {
		var entries []LabelEntry
		if err := json.Unmarshal(raw, &entries); err == nil {
			return entries, nil
		}
		l.log.Warn("slot labels: corrupt cache entry", slog.String("key", key))
	}
	return l.Rebuild(ctx, doctorID, date)
}

// Rebuild recomputes the entry from TimeSlot and stores it. A rebuild racing
// a post-commit Invalidate may store the pre-commit list; that entry lives
// at most the index TTL.
func (l *LabelIndex) Rebuild(ctx context.Context, doctorID, date string) ([]LabelEntry, error) {
	items, err := l.slots.List(ctx, store.SlotFilter{
		DoctorID: doctorID,
		DateFrom: date,
		DateTo:   date,
		Status:   models.SlotStatusAvailable,
	})
	if err != nil {
		return nil, err
	}
	entries := make([]LabelEntry, 0, len(items))
	for _, s := range items {
		entries = append(entries, LabelEntry{
			SlotID:    s.ID,
			StartTime: s.StartTime,
			EndTime:   s.EndTime,
			Label:     s.Label,
			Period:    s.Period,
		})
	}

	if raw, err := json.Marshal(entries); err == nil {
		if err := l.cache.Set(ctx, labelKey(doctorID, date), raw, l.ttl); err != nil {
			l.log.Warn("slot labels: cache write failed", slog.String("doctor_id", doctorID), slog.String("error", err.Error()))
		}
	}
	return entries, nil
}

func (l *LabelIndex) Invalidate(ctx context.Context, doctorID, date string) error {
	return l.cache.Delete(ctx, labelKey(doctorID, date))
}

func (l *LabelIndex) InvalidateDoctor(ctx context.Context, doctorID string) error {
	return l.cache.DeletePrefix(ctx, labelKeyPrefix+doctorID+":")
}
