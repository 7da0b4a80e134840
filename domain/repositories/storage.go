package repositories

import (
	"context"
	"errors"

	"github.com/binaryworks/medilink/domain/entities"
)

var (
	// ErrNotFound is returned when a lookup matches no document.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicate is returned when a unique constraint is violated.
	ErrDuplicate = errors.New("repository: duplicate")
)

// ProductRepository defines data access methods for the `productos` collection
type ProductRepository interface {
	Create(ctx context.Context, product *entities.Product) error
	GetByID(ctx context.Context, id string) (*entities.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]*entities.Product, error)
	Update(ctx context.Context, product *entities.Product) error
	Delete(ctx context.Context, id string) error
}

// ProductFilter narrows product listings. The zero value lists everything.
type ProductFilter struct {
	Category string
	Search   string // matched against nombre and descripcion
}

// DoctorRepository defines data access methods for the `doctores` collection
type DoctorRepository interface {
	GetByID(ctx context.Context, id string) (*entities.Doctor, error)
	List(ctx context.Context, specialty string) ([]*entities.Doctor, error)
}

// AppointmentRepository defines data access methods for the `citas` collection
type AppointmentRepository interface {
	Create(ctx context.Context, appointment *entities.Appointment) error
	GetByID(ctx context.Context, id string) (*entities.Appointment, error)
	ListByUserID(ctx context.Context, userID string) ([]*entities.Appointment, error)
	ListAll(ctx context.Context) ([]*entities.Appointment, error)
	Update(ctx context.Context, appointment *entities.Appointment) error
}

// UserRepository defines data access methods for the `usuarios` collection
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id string) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
}
