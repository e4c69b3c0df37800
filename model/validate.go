package model

import (
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MinNameLength     = 2
	MaxNameLength     = 50
	MaxEmailLength    = 128
	MaxChiefComplaint = 500
	MaxPresentIllness = 2000
	MaxClinicalNotes  = 5000
	MaxPrivateNotes   = 2000
)

var (
	phonePattern   = regexp.MustCompile(`^[+]?[\d\s\-()]+$`)
	scriptScheme   = regexp.MustCompile(`(?i)javascript:`)
	inlineHandler  = regexp.MustCompile(`(?i)\bon\w+\s*=`)
	bloodTypes     = map[string]bool{"A+": true, "A-": true, "B+": true, "B-": true, "AB+": true, "AB-": true, "O+": true, "O-": true}
	genders        = map[string]bool{"male": true, "female": true, "other": true}
	visitTypes     = map[VisitType]bool{VisitConsultation: true, VisitFollowUp: true, VisitEmergency: true, VisitRoutineCheckup: true, VisitProcedure: true, VisitLabReview: true, VisitTelemedicine: true}
	recordStatuses = map[RecordStatus]bool{RecordDraft: true, RecordPendingReview: true, RecordCompleted: true, RecordAmended: true}
	priorities     = map[string]bool{"low": true, "medium": true, "high": true, "urgent": true}
)

// Registration is the role-tagged input accepted when creating an identity.
// Exactly one of Doctor or Patient is consulted, selected by Role.
type Registration struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Role     Role
	Doctor   *DoctorProfile
	Patient  *PatientProfile
}

// NormalizeEmail lower-cases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Sanitize trims s and strips angle brackets, script schemes and inline
// event handler attributes.
func Sanitize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("<", "", ">", "").Replace(s)
	s = scriptScheme.ReplaceAllString(s, "")
	s = inlineHandler.ReplaceAllString(s, "")
	return s
}

// ValidateEmail checks format and length.
func ValidateEmail(email string) string {
	if email == "" {
		return "email is required"
	}
	if len(email) > MaxEmailLength {
		return "email is too long"
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "email is invalid"
	}
	return ""
}

// ValidateName checks the display name bounds.
func ValidateName(name string) string {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n == 0 {
		return "name is required"
	}
	if n < MinNameLength || n > MaxNameLength {
		return "name must be between 2 and 50 characters"
	}
	return ""
}

// ValidatePhone accepts digits, spaces, dashes, parentheses and a leading plus.
func ValidatePhone(phone string) string {
	if phone == "" {
		return ""
	}
	if !phonePattern.MatchString(phone) {
		return "phone number is invalid"
	}
	return ""
}

// ValidateRegistration checks the common fields and dispatches on Role for
// the role-conditional profile. Password strength is checked separately by
// the password policy. Every violation is reported.
func ValidateRegistration(r Registration, now time.Time) error {
	var fields []string
	add := func(msg string) {
		if msg != "" {
			fields = append(fields, msg)
		}
	}

	add(ValidateName(r.Name))
	add(ValidateEmail(r.Email))
	add(ValidatePhone(r.Phone))
	if r.Password == "" {
		add("password is required")
	}

	switch r.Role {
	case RoleDoctor:
		fields = append(fields, validateDoctor(r.Doctor)...)
	case RolePatient:
		fields = append(fields, validatePatient(r.Patient, now)...)
	case RoleAdmin:
	default:
		add("role must be one of admin, doctor, patient")
	}

	return Invalid(fields...)
}

func validateDoctor(d *DoctorProfile) []string {
	var fields []string
	if d == nil || strings.TrimSpace(d.Specialization) == "" {
		fields = append(fields, "specialization is required for doctors")
	}
	if d == nil || strings.TrimSpace(d.LicenseNumber) == "" {
		fields = append(fields, "license number is required for doctors")
	}
	return fields
}

func validatePatient(p *PatientProfile, now time.Time) []string {
	if p == nil {
		return []string{"date of birth is required for patients", "gender is required for patients"}
	}
	var fields []string
	if p.DateOfBirth.IsZero() {
		fields = append(fields, "date of birth is required for patients")
	} else if p.DateOfBirth.After(now) {
		fields = append(fields, "date of birth cannot be in the future")
	}
	if p.Gender == "" {
		fields = append(fields, "gender is required for patients")
	} else if !genders[p.Gender] {
		fields = append(fields, "gender must be one of male, female, other")
	}
	if p.BloodType != "" && !bloodTypes[p.BloodType] {
		fields = append(fields, "blood type is invalid")
	}
	if ec := p.EmergencyContact; ec != nil {
		if msg := ValidatePhone(ec.Phone); msg != "" {
			fields = append(fields, "emergency contact "+msg)
		}
	}
	return fields
}

// ValidateRecord checks the clinical fields of a record before persistence.
func ValidateRecord(r *MedicalRecord) error {
	var fields []string
	if r.PatientID == "" {
		fields = append(fields, "patient is required")
	}
	if r.VisitDate.IsZero() {
		fields = append(fields, "visit date is required")
	}
	if !visitTypes[r.VisitType] {
		fields = append(fields, "visit type is invalid")
	}
	if strings.TrimSpace(r.ChiefComplaint) == "" {
		fields = append(fields, "chief complaint is required")
	}
	if utf8.RuneCountInString(r.ChiefComplaint) > MaxChiefComplaint {
		fields = append(fields, "chief complaint cannot exceed 500 characters")
	}
	if utf8.RuneCountInString(r.PresentIllness) > MaxPresentIllness {
		fields = append(fields, "present illness cannot exceed 2000 characters")
	}
	if utf8.RuneCountInString(r.ClinicalNotes) > MaxClinicalNotes {
		fields = append(fields, "clinical notes cannot exceed 5000 characters")
	}
	if utf8.RuneCountInString(r.PrivateNotes) > MaxPrivateNotes {
		fields = append(fields, "private notes cannot exceed 2000 characters")
	}
	if r.Status != "" && !recordStatuses[r.Status] {
		fields = append(fields, "status is invalid")
	}
	if r.Priority != "" && !priorities[r.Priority] {
		fields = append(fields, "priority is invalid")
	}
	for _, d := range r.Diagnoses {
		if strings.TrimSpace(d.Description) == "" {
			fields = append(fields, "diagnosis description is required")
			break
		}
	}
	return Invalid(fields...)
}

// ValidateSharePermissions rejects empty or unknown permission sets.
func ValidateSharePermissions(perms []SharePermission) error {
	if len(perms) == 0 {
		return Invalid("at least one permission is required")
	}
	for _, p := range perms {
		switch p {
		case ShareRead, ShareWrite, ShareShare:
		default:
			return Invalid("permission " + string(p) + " is invalid")
		}
	}
	return nil
}
