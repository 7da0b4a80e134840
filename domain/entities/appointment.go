package entities

import (
	"errors"
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pendiente"
	AppointmentStatusConfirmed AppointmentStatus = "confirmada"
	AppointmentStatusCancelled AppointmentStatus = "cancelada"
)

// Appointment represents a booked consultation in the `citas` collection.
type Appointment struct {
	ID         string            `json:"id" bson:"_id,omitempty"`
	UserID     string            `json:"usuarioId" bson:"usuarioId"`
	DoctorID   string            `json:"doctorId" bson:"doctorId"`
	DoctorName string            `json:"doctorNombre" bson:"doctorNombre"`
	Date       string            `json:"fecha" bson:"fecha"` // YYYY-MM-DD
	Hour       string            `json:"hora" bson:"hora"`   // HH:MM
	Type       string            `json:"tipo" bson:"tipo"`
	Status     AppointmentStatus `json:"estado" bson:"estado"`
	CreatedAt  time.Time         `json:"createdAt" bson:"createdAt"`
}

// Validate validates the appointment data
func (a *Appointment) Validate() error {
	if a.UserID == "" {
		return errors.New("usuarioId is required")
	}
	if a.DoctorID == "" {
		return errors.New("doctorId is required")
	}
	if _, err := time.Parse("2006-01-02", a.Date); err != nil {
		return errors.New("fecha must be YYYY-MM-DD")
	}
	if _, err := time.Parse("15:04", a.Hour); err != nil {
		return errors.New("hora must be HH:MM")
	}
	return nil
}

// Cancel marks the appointment as cancelled. Cancelling twice is not an error.
func (a *Appointment) Cancel() {
	a.Status = AppointmentStatusCancelled
}

// Weekday returns the Spanish weekday name for the appointment date, matching
// the doctor's availability grid.
func (a *Appointment) Weekday() string {
	t, err := time.Parse("2006-01-02", a.Date)
	if err != nil {
		return ""
	}
	names := map[time.Weekday]string{
		time.Monday:    "Lunes",
		time.Tuesday:   "Martes",
		time.Wednesday: "Miércoles",
		time.Thursday:  "Jueves",
		time.Friday:    "Viernes",
		time.Saturday:  "Sábado",
		time.Sunday:    "Domingo",
	}
	return names[t.Weekday()]
}
