package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/binaryworks/medilink/domain/entities"
	"github.com/binaryworks/medilink/domain/repositories"
)

type AppointmentRepository struct {
	collection *mongo.Collection
}

// NewAppointmentRepository creates a MongoDB-backed appointment repository
func NewAppointmentRepository(db *mongo.Database) repositories.AppointmentRepository {
	return &AppointmentRepository{
		collection: db.Collection("citas"),
	}
}

// Create implements repositories.AppointmentRepository
func (r *AppointmentRepository) Create(ctx context.Context, appointment *entities.Appointment) error {
	if appointment == nil {
		return errors.New("appointment cannot be nil")
	}
	if appointment.ID == "" {
		appointment.ID = uuid.NewString()
	}
	if appointment.CreatedAt.IsZero() {
		appointment.CreatedAt = time.Now()
	}

	if _, err := r.collection.InsertOne(ctx, appointment); err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

// GetByID implements repositories.AppointmentRepository
func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	var appointment entities.Appointment
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&appointment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

// ListByUserID implements repositories.AppointmentRepository
func (r *AppointmentRepository) ListByUserID(ctx context.Context, userID string) ([]*entities.Appointment, error) {
	return r.list(ctx, bson.M{"usuarioId": userID})
}

// ListAll implements repositories.AppointmentRepository
func (r *AppointmentRepository) ListAll(ctx context.Context) ([]*entities.Appointment, error) {
	return r.list(ctx, bson.M{})
}

func (r *AppointmentRepository) list(ctx context.Context, query bson.M) ([]*entities.Appointment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "fecha", Value: 1}, {Key: "hora", Value: 1}})
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer cursor.Close(ctx)

	var appointments []*entities.Appointment
	if err := cursor.All(ctx, &appointments); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}
	return appointments, nil
}

// Update implements repositories.AppointmentRepository
func (r *AppointmentRepository) Update(ctx context.Context, appointment *entities.Appointment) error {
	if appointment == nil || appointment.ID == "" {
		return errors.New("appointment with ID is required")
	}

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": appointment.ID}, appointment)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	if result.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}
