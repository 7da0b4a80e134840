package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/binaryworks/medilink/domain/entities"
	"github.com/binaryworks/medilink/domain/repositories"
)

type DoctorRepository struct {
	collection *mongo.Collection
}

// NewDoctorRepository creates a MongoDB-backed doctor repository
func NewDoctorRepository(db *mongo.Database) repositories.DoctorRepository {
	return &DoctorRepository{
		collection: db.Collection("doctores"),
	}
}

// GetByID implements repositories.DoctorRepository
func (r *DoctorRepository) GetByID(ctx context.Context, id string) (*entities.Doctor, error) {
	var doctor entities.Doctor
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doctor)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	return &doctor, nil
}

// List implements repositories.DoctorRepository
func (r *DoctorRepository) List(ctx context.Context, specialty string) ([]*entities.Doctor, error) {
	query := bson.M{}
	if specialty != "" {
		query["especialidad"] = specialty
	}

	cursor, err := r.collection.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	defer cursor.Close(ctx)

	var doctors []*entities.Doctor
	if err := cursor.All(ctx, &doctors); err != nil {
		return nil, fmt.Errorf("failed to decode doctors: %w", err)
	}
	return doctors, nil
}
