package authcore

// Role identifies the account namespace. Usernames, emails, and mobile
// numbers are unique across both roles; account ids are unique within one.
type Role string

const (
	// RolePatient is the patient account namespace.
	RolePatient Role = "patient"
	// RoleDoctor is the doctor account namespace.
	RoleDoctor Role = "doctor"
)

// SignupRequest is the input for [Engine.Signup]. All fields are required;
// Role defaults to [RolePatient] when empty.
type SignupRequest struct {
	Role     Role
	Username string
	Email    string
	Mobile   string
	Password string
}

// SignupResult is returned by [Engine.Signup]. State is always "otp_sent":
// the account does not exist until the code is verified.
type SignupResult struct {
	Email string
	State string
}

// VerifySignupResult is returned by [Engine.VerifySignup]. AlreadyVerified
// is true when a concurrent verification consumed the pending record first
// and this call resolved to the account it created.
type VerifySignupResult struct {
	AccountID       string
	Username        string
	Email           string
	Mobile          string
	Status          string
	Token           string
	AlreadyVerified bool
}

// LoginResult is returned by [Engine.Login]. SessionID identifies the
// tracking session opened for this login.
type LoginResult struct {
	AccountID         string
	Username          string
	Email             string
	Role              Role
	Token             string
	SessionID         string
	IsProfileComplete bool
}

// ProfileUpdate is the input for [Engine.CompleteProfile]. Empty strings
// mean "not supplied" and leave the stored value untouched; IsPregnant is a
// pointer for the same reason. Dates use the 2006-01-02 layout.
type ProfileUpdate struct {
	FirstName      string
	LastName       string
	DateOfBirth    string
	BloodType      string
	Weight         string
	Height         string
	IsPregnant     *bool
	LastPeriodDate string

	EmergencyName         string
	EmergencyRelationship string
	EmergencyPhone        string
}

// CompleteProfileResult is returned by [Engine.CompleteProfile]. Age,
// PregnancyWeek, and ExpectedDeliveryDate are computed server-side and are
// zero-valued when the inputs they derive from are absent.
type CompleteProfileResult struct {
	AccountID            string
	IsProfileComplete    bool
	Age                  int
	PregnancyWeek        int
	ExpectedDeliveryDate string
}
