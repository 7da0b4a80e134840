package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/binaryworks/medilink/domain/entities"
	"github.com/binaryworks/medilink/domain/repositories"
)

type ProductRepository struct {
	collection *mongo.Collection
}

// NewProductRepository creates a MongoDB-backed product repository
func NewProductRepository(db *mongo.Database) repositories.ProductRepository {
	return &ProductRepository{
		collection: db.Collection("productos"),
	}
}

// Create implements repositories.ProductRepository
func (r *ProductRepository) Create(ctx context.Context, product *entities.Product) error {
	if product == nil {
		return errors.New("product cannot be nil")
	}
	if product.ID == "" {
		product.ID = uuid.NewString()
	}

	if _, err := r.collection.InsertOne(ctx, product); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// GetByID implements repositories.ProductRepository
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*entities.Product, error) {
	var product entities.Product
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

// List implements repositories.ProductRepository
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductFilter) ([]*entities.Product, error) {
	query := bson.M{}
	if filter.Category != "" {
		query["categoria"] = filter.Category
	}
	if filter.Search != "" {
		pattern := bson.M{"$regex": filter.Search, "$options": "i"}
		query["$or"] = bson.A{
			bson.M{"nombre": pattern},
			bson.M{"descripcion": pattern},
		}
	}

	cursor, err := r.collection.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer cursor.Close(ctx)

	var products []*entities.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}

// Update implements repositories.ProductRepository
func (r *ProductRepository) Update(ctx context.Context, product *entities.Product) error {
	if product == nil || product.ID == "" {
		return errors.New("product with ID is required")
	}

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": product.ID}, product)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if result.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// Delete implements repositories.ProductRepository
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if result.DeletedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}
