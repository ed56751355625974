package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/Ritika1223/jensieBackend/internal/models"
	"github.com/Ritika1223/jensieBackend/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const duplicateKeyCode = 11000

type SlotRepository struct {
	col *mongo.Collection
}

func (r *SlotRepository) InsertMany(ctx context.Context, slots []models.TimeSlot) (store.InsertResult, error) {
	if len(slots) == 0 {
		return store.InsertResult{}, nil
	}
	docs := make([]interface{}, len(slots))
	for i := range slots {
		docs[i] = slots[i]
	}

	_, err := r.col.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return store.InsertResult{Inserted: len(slots)}, nil
	}

	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || bwe.WriteConcernError != nil {
		return store.InsertResult{}, err
	}
	dups := 0
	for _, we := range bwe.WriteErrors {
		if we.Code != duplicateKeyCode {
			return store.InsertResult{}, err
		}
		dups++
	}
	return store.InsertResult{Inserted: len(slots) - dups, Duplicates: dups}, nil
}

func (r *SlotRepository) GetByID(ctx context.Context, id string) (models.TimeSlot, error) {
	var slot models.TimeSlot
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&slot); err != nil {
		return models.TimeSlot{}, translate(err)
	}
	return slot, nil
}

func (r *SlotRepository) GetByIDs(ctx context.Context, ids []string) (map[string]models.TimeSlot, error) {
	out := make(map[string]models.TimeSlot, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cursor, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	slots, err := decodeAll[models.TimeSlot](ctx, cursor)
	if err != nil {
		return nil, err
	}
	for _, s := range slots {
		out[s.ID] = s
	}
	return out, nil
}

func (r *SlotRepository) List(ctx context.Context, filter store.SlotFilter) ([]models.TimeSlot, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "startTime", Value: 1}})
	cursor, err := r.col.Find(ctx, slotFilterToBSON(filter), opts)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.TimeSlot](ctx, cursor)
}

func (r *SlotRepository) Claim(ctx context.Context, id, appointmentID, bookingType string, now time.Time) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.SlotStatusAvailable},
		bson.M{"$set": bson.M{
			"status":        models.SlotStatusBooked,
			"appointmentId": appointmentID,
			"bookingType":   bookingType,
			"updatedAt":     now,
		}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (r *SlotRepository) Release(ctx context.Context, id, appointmentID, status string, now time.Time) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "appointmentId": appointmentID},
		bson.M{"$set": bson.M{
			"status":        status,
			"appointmentId": nil,
			"bookingType":   nil,
			"updatedAt":     now,
		}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (r *SlotRepository) DeleteUnbooked(ctx context.Context, doctorID, date string) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{
		"doctorId": doctorID,
		"date":     date,
		"status":   bson.M{"$ne": models.SlotStatusBooked},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *SlotRepository) CancelAvailable(ctx context.Context, doctorID, from, to string, now time.Time) (int64, error) {
	res, err := r.col.UpdateMany(ctx,
		bson.M{
			"doctorId": doctorID,
			"date":     bson.M{"$gte": from, "$lte": to},
			"status":   models.SlotStatusAvailable,
		},
		bson.M{"$set": bson.M{"status": models.SlotStatusCancelled, "updatedAt": now}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func slotFilterToBSON(filter store.SlotFilter) bson.M {
	query := bson.M{}
	if filter.DoctorID != "" {
		query["doctorId"] = filter.DoctorID
	}
	date := bson.M{}
	if filter.DateFrom != "" {
		date["$gte"] = filter.DateFrom
	}
	if filter.DateTo != "" {
		date["$lte"] = filter.DateTo
	}
	if len(date) > 0 {
		query["date"] = date
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Period != "" {
		query["period"] = filter.Period
	}
	return query
}
