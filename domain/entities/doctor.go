package entities

import "errors"

// DayAvailability lists the bookable hours for one weekday, e.g.
// {Day: "Lunes", Hours: ["09:00", "10:00"]}.
type DayAvailability struct {
	Day   string   `json:"dia" bson:"dia"`
	Hours []string `json:"horarios" bson:"horarios"`
}

// Doctor represents a practitioner in the `doctores` collection.
type Doctor struct {
	ID           string            `json:"id" bson:"_id,omitempty"`
	Name         string            `json:"nombre" bson:"nombre"`
	Specialty    string            `json:"especialidad" bson:"especialidad"`
	Description  string            `json:"descripcion" bson:"descripcion"`
	Experience   int               `json:"experiencia" bson:"experiencia"` // years
	Rating       float64           `json:"rating" bson:"rating"`
	Price        float64           `json:"precio" bson:"precio"`
	Availability []DayAvailability `json:"disponibilidad" bson:"disponibilidad"`
}

// Validate validates the doctor data
func (d *Doctor) Validate() error {
	if d.Name == "" {
		return errors.New("nombre is required")
	}
	if d.Specialty == "" {
		return errors.New("especialidad is required")
	}
	return nil
}

// HasSlot reports whether the doctor offers the given hour on the given
// weekday. Appointment creation rejects slots outside the availability grid.
func (d *Doctor) HasSlot(day, hour string) bool {
	for _, a := range d.Availability {
		if a.Day != day {
			continue
		}
		for _, h := range a.Hours {
			if h == hour {
				return true
			}
		}
	}
	return false
}
