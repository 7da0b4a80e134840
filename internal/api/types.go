package api

// RegisterRequest represents the request payload for user registration
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"nombre"`
	Password string `json:"password"`
}

// LoginRequest represents the request payload for user login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the signed token and the authenticated user
type AuthResponse struct {
	Token string      `json:"token"`
	User  interface{} `json:"usuario"`
}

// AppointmentRequest represents the request payload for booking an
// appointment
type AppointmentRequest struct {
	DoctorID string `json:"doctorId"`
	Date     string `json:"fecha"` // YYYY-MM-DD
	Hour     string `json:"hora"`  // HH:MM
	Type     string `json:"tipo"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
