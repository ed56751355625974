// Package mongostore implements the store contracts on MongoDB.
package mongostore

import (
	"context"
	"errors"

	"github.com/Ritika1223/jensieBackend/internal/db"
	"github.com/Ritika1223/jensieBackend/internal/store"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

func New(client *mongo.Client, cols *db.Collections) *store.Store {
	return &store.Store{
		Tx:             &Transactor{client: client},
		Slots:          &SlotRepository{col: cols.TimeSlots},
		Appointments:   &AppointmentRepository{col: cols.Appointments},
		Templates:      &TemplateRepository{col: cols.ScheduleTemplates},
		Overrides:      &OverrideRepository{col: cols.ScheduleOverrides},
		Unavailability: &UnavailabilityRepository{col: cols.Unavailability},
		Doctors:        &DoctorRepository{col: cols.Doctors},
		Users:          &UserRepository{col: cols.Users},
	}
}

// Transactor runs callbacks in a multi-document transaction with snapshot
// reads and majority writes. Transient errors are retried by the driver.
// Calls made with a ctx that already carries a session join its transaction.
type Transactor struct {
	client *mongo.Client
}

func (t *Transactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}
	sess, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	opts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, opts)
	return err
}

func translate(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return errors.Join(store.ErrDuplicate, err)
	}
	return err
}

func decodeAll[T any](ctx context.Context, cursor *mongo.Cursor) ([]T, error) {
	defer cursor.Close(ctx)

	items := make([]T, 0)
	for cursor.Next(ctx) {
		var item T
		if err := cursor.Decode(&item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
