package mongostore

import (
	"context"
	"time"

	"github.com/Ritika1223/jensieBackend/internal/models"
	"github.com/Ritika1223/jensieBackend/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AppointmentRepository struct {
	col *mongo.Collection
}

func (r *AppointmentRepository) Create(ctx context.Context, appointment models.Appointment) error {
	_, err := r.col.InsertOne(ctx, appointment)
	return translate(err)
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (models.Appointment, error) {
	var appointment models.Appointment
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&appointment); err != nil {
		return models.Appointment{}, translate(err)
	}
	return appointment, nil
}

func (r *AppointmentRepository) List(ctx context.Context, filter store.AppointmentFilter, limit, offset int64) ([]models.Appointment, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := r.col.Find(ctx, appointmentFilterToBSON(filter), opts)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.Appointment](ctx, cursor)
}

func (r *AppointmentRepository) Count(ctx context.Context, filter store.AppointmentFilter) (int64, error) {
	return r.col.CountDocuments(ctx, appointmentFilterToBSON(filter))
}

func (r *AppointmentRepository) MarkCancelled(ctx context.Context, id, cancelledBy, reason string, at time.Time) (models.Appointment, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{
		"$set": bson.M{
			"status":             models.AppointmentStatusCancelled,
			"cancelledAt":        at,
			"cancelledBy":        cancelledBy,
			"cancellationReason": reason,
			"updatedAt":          at,
		},
	}

	var updated models.Appointment
	filter := bson.M{"_id": id, "status": bson.M{"$ne": models.AppointmentStatusCancelled}}
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated); err != nil {
		return models.Appointment{}, translate(err)
	}
	return updated, nil
}

func appointmentFilterToBSON(filter store.AppointmentFilter) bson.M {
	query := bson.M{}
	if filter.UserID != "" {
		query["userId"] = filter.UserID
	}
	if filter.DoctorID != "" {
		query["doctorId"] = filter.DoctorID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.TimeSlotIDs != nil {
		query["timeSlotId"] = bson.M{"$in": filter.TimeSlotIDs}
	}
	return query
}
