// Package memory holds in-memory implementations of the storage
// repositories. They back the API tests and let the server run without a
// database during development.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/binaryworks/medilink/domain/entities"
	"github.com/binaryworks/medilink/domain/repositories"
)

// ProductRepository is an in-memory implementation of
// repositories.ProductRepository
type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]*entities.Product
}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{products: make(map[string]*entities.Product)}
}

func (m *ProductRepository) Create(ctx context.Context, product *entities.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	clone := *product
	m.products[product.ID] = &clone
	return nil
}

func (m *ProductRepository) GetByID(ctx context.Context, id string) (*entities.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	product, ok := m.products[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	clone := *product
	return &clone, nil
}

func (m *ProductRepository) List(ctx context.Context, filter repositories.ProductFilter) ([]*entities.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*entities.Product
	for _, product := range m.products {
		if filter.Category != "" && product.Category != filter.Category {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(product.Name), needle) &&
				!strings.Contains(strings.ToLower(product.Description), needle) {
				continue
			}
		}
		clone := *product
		out = append(out, &clone)
	}
	return out, nil
}

func (m *ProductRepository) Update(ctx context.Context, product *entities.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[product.ID]; !ok {
		return repositories.ErrNotFound
	}
	clone := *product
	m.products[product.ID] = &clone
	return nil
}

func (m *ProductRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(m.products, id)
	return nil
}

// DoctorRepository is an in-memory implementation of
// repositories.DoctorRepository
type DoctorRepository struct {
	mu      sync.RWMutex
	doctors map[string]*entities.Doctor
}

func NewDoctorRepository() *DoctorRepository {
	return &DoctorRepository{doctors: make(map[string]*entities.Doctor)}
}

// Add seeds one doctor, assigning an ID when missing.
func (m *DoctorRepository) Add(doctor *entities.Doctor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doctor.ID == "" {
		doctor.ID = uuid.NewString()
	}
	clone := *doctor
	m.doctors[doctor.ID] = &clone
}

func (m *DoctorRepository) GetByID(ctx context.Context, id string) (*entities.Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doctor, ok := m.doctors[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	clone := *doctor
	return &clone, nil
}

func (m *DoctorRepository) List(ctx context.Context, specialty string) ([]*entities.Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*entities.Doctor
	for _, doctor := range m.doctors {
		if specialty != "" && doctor.Specialty != specialty {
			continue
		}
		clone := *doctor
		out = append(out, &clone)
	}
	return out, nil
}

// AppointmentRepository is an in-memory implementation of
// repositories.AppointmentRepository
type AppointmentRepository struct {
	mu           sync.RWMutex
	appointments map[string]*entities.Appointment
}

func NewAppointmentRepository() *AppointmentRepository {
	return &AppointmentRepository{appointments: make(map[string]*entities.Appointment)}
}

func (m *AppointmentRepository) Create(ctx context.Context, appointment *entities.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if appointment.ID == "" {
		appointment.ID = uuid.NewString()
	}
	clone := *appointment
	m.appointments[appointment.ID] = &clone
	return nil
}

func (m *AppointmentRepository) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	appointment, ok := m.appointments[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	clone := *appointment
	return &clone, nil
}

func (m *AppointmentRepository) ListByUserID(ctx context.Context, userID string) ([]*entities.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*entities.Appointment
	for _, appointment := range m.appointments {
		if appointment.UserID != userID {
			continue
		}
		clone := *appointment
		out = append(out, &clone)
	}
	return out, nil
}

func (m *AppointmentRepository) ListAll(ctx context.Context) ([]*entities.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*entities.Appointment
	for _, appointment := range m.appointments {
		clone := *appointment
		out = append(out, &clone)
	}
	return out, nil
}

func (m *AppointmentRepository) Update(ctx context.Context, appointment *entities.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appointments[appointment.ID]; !ok {
		return repositories.ErrNotFound
	}
	clone := *appointment
	m.appointments[appointment.ID] = &clone
	return nil
}

// UserRepository is an in-memory implementation of
// repositories.UserRepository
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*entities.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*entities.User)}
}

func (m *UserRepository) Create(ctx context.Context, user *entities.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return repositories.ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	clone := *user
	m.users[user.ID] = &clone
	return nil
}

func (m *UserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (m *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, user := range m.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repositories.ErrNotFound
}
