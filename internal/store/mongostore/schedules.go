package mongostore

import (
	"context"
	"fmt"

	"github.com/Ritika1223/jensieBackend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TemplateRepository struct {
	col *mongo.Collection
}

func (r *TemplateRepository) Upsert(ctx context.Context, t models.ScheduleTemplate) (models.ScheduleTemplate, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	update := bson.M{
		"$set": bson.M{
			"isAvailable":    t.IsAvailable,
			"startTime":      t.StartTime,
			"endTime":        t.EndTime,
			"periods":        t.Periods,
			"breakStartTime": t.BreakStartTime,
			"breakEndTime":   t.BreakEndTime,
			"updatedAt":      t.UpdatedAt,
		},
		"$setOnInsert": bson.M{"_id": primitive.NewObjectID().Hex()},
	}

	var saved models.ScheduleTemplate
	filter := bson.M{"doctorId": t.DoctorID, "dayOfWeek": t.DayOfWeek}
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&saved); err != nil {
		return models.ScheduleTemplate{}, translate(err)
	}
	return saved, nil
}

func (r *TemplateRepository) Get(ctx context.Context, doctorID string, dayOfWeek int) (models.ScheduleTemplate, error) {
	var t models.ScheduleTemplate
	if err := r.col.FindOne(ctx, bson.M{"doctorId": doctorID, "dayOfWeek": dayOfWeek}).Decode(&t); err != nil {
		return models.ScheduleTemplate{}, translate(err)
	}
	return t, nil
}

func (r *TemplateRepository) ListByDoctor(ctx context.Context, doctorID string) ([]models.ScheduleTemplate, error) {
	opts := options.Find().SetSort(bson.D{{Key: "dayOfWeek", Value: 1}})
	cursor, err := r.col.Find(ctx, bson.M{"doctorId": doctorID}, opts)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.ScheduleTemplate](ctx, cursor)
}

func (r *TemplateRepository) DoctorIDs(ctx context.Context) ([]string, error) {
	values, err := r.col.Distinct(ctx, "doctorId", bson.M{"isAvailable": true})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(values))
	for _, v := range values {
		id, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected doctorId type %T", v)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

type OverrideRepository struct {
	col *mongo.Collection
}

func (r *OverrideRepository) Upsert(ctx context.Context, o models.ScheduleOverride) (models.ScheduleOverride, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	update := bson.M{
		"$set": bson.M{
			"isDayAvailable":   o.IsDayAvailable,
			"openingTime":      o.OpeningTime,
			"closingTime":      o.ClosingTime,
			"slotDuration":     o.SlotDuration,
			"slotAvailability": o.SlotAvailability,
			"updatedAt":        o.UpdatedAt,
		},
		"$setOnInsert": bson.M{"_id": primitive.NewObjectID().Hex()},
	}

	var saved models.ScheduleOverride
	filter := bson.M{"doctorId": o.DoctorID, "date": o.Date}
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&saved); err != nil {
		return models.ScheduleOverride{}, translate(err)
	}
	return saved, nil
}

func (r *OverrideRepository) Get(ctx context.Context, doctorID, date string) (models.ScheduleOverride, error) {
	var o models.ScheduleOverride
	if err := r.col.FindOne(ctx, bson.M{"doctorId": doctorID, "date": date}).Decode(&o); err != nil {
		return models.ScheduleOverride{}, translate(err)
	}
	return o, nil
}

func (r *OverrideRepository) ListRange(ctx context.Context, doctorID, from, to string) ([]models.ScheduleOverride, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	filter := bson.M{"doctorId": doctorID, "date": bson.M{"$gte": from, "$lte": to}}
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.ScheduleOverride](ctx, cursor)
}
