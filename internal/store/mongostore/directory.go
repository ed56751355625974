package mongostore

import (
	"context"

	"github.com/Ritika1223/jensieBackend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UnavailabilityRepository struct {
	col *mongo.Collection
}

func (r *UnavailabilityRepository) Create(ctx context.Context, window models.UnavailabilityWindow) error {
	_, err := r.col.InsertOne(ctx, window)
	return translate(err)
}

func (r *UnavailabilityRepository) ListByDoctor(ctx context.Context, doctorID string) ([]models.UnavailabilityWindow, error) {
	opts := options.Find().SetSort(bson.D{{Key: "startDate", Value: 1}})
	cursor, err := r.col.Find(ctx, bson.M{"doctorId": doctorID}, opts)
	if err != nil {
		return nil, err
	}
	return decodeAll[models.UnavailabilityWindow](ctx, cursor)
}

type DoctorRepository struct {
	col *mongo.Collection
}

func (r *DoctorRepository) Get(ctx context.Context, id string) (models.Doctor, error) {
	var doctor models.Doctor
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doctor); err != nil {
		return models.Doctor{}, translate(err)
	}
	return doctor, nil
}

func (r *DoctorRepository) Create(ctx context.Context, doctor models.Doctor) error {
	_, err := r.col.InsertOne(ctx, doctor)
	return translate(err)
}

type UserRepository struct {
	col *mongo.Collection
}

func (r *UserRepository) Get(ctx context.Context, id string) (models.User, error) {
	var user models.User
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return models.User{}, translate(err)
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	_, err := r.col.InsertOne(ctx, user)
	return translate(err)
}
