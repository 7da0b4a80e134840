package entities

import "testing"

func TestAppointmentValidate(t *testing.T) {
	tests := []struct {
		name        string
		appointment Appointment
		wantErr     bool
	}{
		{
			name: "valid appointment",
			appointment: Appointment{
				UserID:   "usr-1",
				DoctorID: "doc-001",
				Date:     "2026-09-07",
				Hour:     "09:00",
				Type:     "consulta general",
			},
			wantErr: false,
		},
		{
			name: "missing user",
			appointment: Appointment{
				DoctorID: "doc-001",
				Date:     "2026-09-07",
				Hour:     "09:00",
			},
			wantErr: true,
		},
		{
			name: "bad date format",
			appointment: Appointment{
				UserID:   "usr-1",
				DoctorID: "doc-001",
				Date:     "07/09/2026",
				Hour:     "09:00",
			},
			wantErr: true,
		},
		{
			name: "bad hour format",
			appointment: Appointment{
				UserID:   "usr-1",
				DoctorID: "doc-001",
				Date:     "2026-09-07",
				Hour:     "9am",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.appointment.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAppointmentWeekday(t *testing.T) {
	a := Appointment{Date: "2026-09-07"} // a Monday
	if got := a.Weekday(); got != "Lunes" {
		t.Errorf("expected Lunes, got %s", got)
	}
}

func TestDoctorHasSlot(t *testing.T) {
	doctor := Doctor{
		Name:      "Dr. Carlos García López",
		Specialty: "Medicina General",
		Availability: []DayAvailability{
			{Day: "Lunes", Hours: []string{"09:00", "10:00"}},
			{Day: "Viernes", Hours: []string{"11:00"}},
		},
	}

	if !doctor.HasSlot("Lunes", "09:00") {
		t.Error("expected slot Lunes 09:00 to be available")
	}
	if doctor.HasSlot("Lunes", "11:00") {
		t.Error("did not expect slot Lunes 11:00")
	}
	if doctor.HasSlot("Martes", "09:00") {
		t.Error("did not expect any slot on Martes")
	}
}

func TestAppointmentCancel(t *testing.T) {
	a := Appointment{Status: AppointmentStatusPending}
	a.Cancel()
	if a.Status != AppointmentStatusCancelled {
		t.Errorf("expected status cancelada, got %s", a.Status)
	}
	a.Cancel()
	if a.Status != AppointmentStatusCancelled {
		t.Errorf("expected cancel to be idempotent, got %s", a.Status)
	}
}
