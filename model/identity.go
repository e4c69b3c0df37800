package model

import (
	"time"
)

// Role is the immutable role assigned to an identity at registration.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

// Identity is the single account document for every user of the system.
//
// Lockout state (FailedLogins, LockedUntil) and the one-time secret fields
// live on the document so that every mutation is a single atomic update.
type Identity struct {
	ID             string          `bson:"_id" json:"id"`
	Name           string          `bson:"name" json:"name"`
	Email          string          `bson:"email" json:"email"`
	PasswordHash   string          `bson:"passwordHash" json:"-"`
	Phone          string          `bson:"phone,omitempty" json:"phone,omitempty"`
	Role           Role            `bson:"role" json:"role"`
	Active         bool            `bson:"active" json:"active"`
	EmailVerified  bool            `bson:"emailVerified" json:"emailVerified"`
	ProfilePicture string          `bson:"profilePicture,omitempty" json:"profilePicture,omitempty"`
	Doctor         *DoctorProfile  `bson:"doctor,omitempty" json:"doctor,omitempty"`
	Patient        *PatientProfile `bson:"patient,omitempty" json:"patient,omitempty"`

	FailedLogins int        `bson:"failedLogins" json:"-"`
	LockedUntil  *time.Time `bson:"lockedUntil,omitempty" json:"-"`

	ResetTokenHash  string     `bson:"resetTokenHash,omitempty" json:"-"`
	ResetExpiresAt  *time.Time `bson:"resetExpiresAt,omitempty" json:"-"`
	VerifyTokenHash string     `bson:"verifyTokenHash,omitempty" json:"-"`
	VerifyExpiresAt *time.Time `bson:"verifyExpiresAt,omitempty" json:"-"`

	TokenVersion      uint32     `bson:"tokenVersion" json:"-"`
	PasswordChangedAt *time.Time `bson:"passwordChangedAt,omitempty" json:"-"`
	LastLoginAt       *time.Time `bson:"lastLoginAt,omitempty" json:"lastLogin,omitempty"`
	CreatedAt         time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// DoctorProfile carries the fields required when Role is RoleDoctor.
type DoctorProfile struct {
	Specialization string `bson:"specialization" json:"specialization"`
	LicenseNumber  string `bson:"licenseNumber" json:"licenseNumber"`
}

// PatientProfile carries the fields required when Role is RolePatient.
type PatientProfile struct {
	DateOfBirth      time.Time         `bson:"dateOfBirth" json:"dateOfBirth"`
	Gender           string            `bson:"gender" json:"gender"`
	BloodType        string            `bson:"bloodType,omitempty" json:"bloodType,omitempty"`
	EmergencyContact *EmergencyContact `bson:"emergencyContact,omitempty" json:"emergencyContact,omitempty"`
}

// EmergencyContact is the optional next-of-kin entry of a patient profile.
type EmergencyContact struct {
	Name         string `bson:"name" json:"name"`
	Phone        string `bson:"phone" json:"phone"`
	Relationship string `bson:"relationship" json:"relationship"`
}

// IsLocked reports whether the lockout window is still open at now.
func (i *Identity) IsLocked(now time.Time) bool {
	if i == nil || i.LockedUntil == nil {
		return false
	}
	return i.LockedUntil.After(now)
}

// Age returns the patient's age in whole years, or -1 for identities
// without a patient profile.
func (i *Identity) Age(now time.Time) int {
	if i == nil || i.Patient == nil || i.Patient.DateOfBirth.IsZero() {
		return -1
	}
	dob := i.Patient.DateOfBirth
	age := now.Year() - dob.Year()
	if now.YearDay() < dob.YearDay() {
		age--
	}
	return age
}

// IdentityFilter narrows admin directory listings.
type IdentityFilter struct {
	Role   Role
	Active *bool
	Page   int
	Limit  int
}

// IdentityUpdate holds the mutable profile fields. Nil pointers leave the
// stored value untouched. Role is intentionally absent.
type IdentityUpdate struct {
	Name   *string
	Phone  *string
	Active *bool
}

// Page is a generic paginated listing result.
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Pages int   `json:"pages"`
}

// NewPage computes the page count for total items split by limit.
func NewPage[T any](items []T, total int64, page, limit int) Page[T] {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: total, Page: page, Pages: pages}
}

// Normalize clamps pagination inputs to sane defaults.
func Normalize(page, limit, maxLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

// LockState is the lockout view of an identity after an atomic update.
type LockState struct {
	FailedLogins int
	LockedUntil  *time.Time
}

// Locked reports whether the state is locked at now.
func (s LockState) Locked(now time.Time) bool {
	return s.LockedUntil != nil && s.LockedUntil.After(now)
}
