package store

// Account is a verified patient or doctor identity. Mutable only through
// Store methods; password_hash never changes via UpdateAccount.
type Account struct {
	AccountID    string `json:"account_id"`
	Role         string `json:"role"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Mobile       string `json:"mobile"`
	PasswordHash string `json:"password_hash"`
	Status       string `json:"status"`

	// Latest contact verification code, overwritten wholesale on each
	// reissue. Distinct from the pending-registration and reset codes.
	Code          string `json:"code,omitempty"`
	CodeIssuedAt  int64  `json:"code_issued_at,omitempty"`
	CodeExpiresAt int64  `json:"code_expires_at,omitempty"`

	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	DateOfBirth    string `json:"date_of_birth,omitempty"`
	Age            int    `json:"age,omitempty"`
	BloodType      string `json:"blood_type,omitempty"`
	Weight         string `json:"weight,omitempty"`
	Height         string `json:"height,omitempty"`
	IsPregnant     bool   `json:"is_pregnant,omitempty"`
	LastPeriodDate string `json:"last_period_date,omitempty"`
	PregnancyWeek  int    `json:"pregnancy_week,omitempty"`
	// ExpectedDeliveryDate is last_period_date + 280 days, 2006-01-02.
	ExpectedDeliveryDate string `json:"expected_delivery_date,omitempty"`

	EmergencyName         string `json:"emergency_name,omitempty"`
	EmergencyRelationship string `json:"emergency_relationship,omitempty"`
	EmergencyPhone        string `json:"emergency_phone,omitempty"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// StatusActive is the only account status this subsystem creates. Accounts
// are never hard-deleted here.
const StatusActive = "active"

// PendingRegistration is a signup awaiting code verification. At most one
// live record exists per email; re-signup replaces it wholesale.
type PendingRegistration struct {
	Email         string
	Role          string
	Username      string
	Mobile        string
	PasswordHash  string
	Code          string
	CodeIssuedAt  int64
	CodeExpiresAt int64
	CreatedAt     int64
}

// ResetRequest binds a one-time code to an existing account for password
// recovery. Consumed on the first successful password change.
type ResetRequest struct {
	AccountID     string
	Code          string
	CodeIssuedAt  int64
	CodeExpiresAt int64
}
