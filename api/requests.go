package api

import (
	"strings"
	"time"

	"github.com/MrEthical07/medvault/model"
	"github.com/MrEthical07/medvault/records"
)

type registerRequest struct {
	Name             string                  `json:"name"`
	Email            string                  `json:"email"`
	Password         string                  `json:"password"`
	Phone            string                  `json:"phone"`
	Role             model.Role              `json:"role"`
	Specialization   string                  `json:"specialization"`
	LicenseNumber    string                  `json:"licenseNumber"`
	DateOfBirth      string                  `json:"dateOfBirth"`
	Gender           string                  `json:"gender"`
	BloodType        string                  `json:"bloodType"`
	EmergencyContact *model.EmergencyContact `json:"emergencyContact"`
}

// registration flattens the wire shape into the role-tagged union. An
// unparseable date of birth is left zero so validation reports it.
func (r registerRequest) registration() model.Registration {
	reg := model.Registration{
		Name:     r.Name,
		Email:    r.Email,
		Password: r.Password,
		Phone:    r.Phone,
		Role:     r.Role,
	}
	switch r.Role {
	case model.RoleDoctor:
		reg.Doctor = &model.DoctorProfile{Specialization: r.Specialization, LicenseNumber: r.LicenseNumber}
	case model.RolePatient:
		dob, _ := parseDate(r.DateOfBirth)
		reg.Patient = &model.PatientProfile{
			DateOfBirth:      dob,
			Gender:           r.Gender,
			BloodType:        r.BloodType,
			EmergencyContact: r.EmergencyContact,
		}
	}
	return reg
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type detailsRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

type passwordChangeRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

type userUpdateRequest struct {
	Name   *string `json:"name"`
	Phone  *string `json:"phone"`
	Active *bool   `json:"isActive"`
	Role   *string `json:"role"`
}

func (r userUpdateRequest) update() (model.IdentityUpdate, error) {
	if r.Role != nil {
		return model.IdentityUpdate{}, model.Invalid("role cannot be changed")
	}
	return model.IdentityUpdate{Name: r.Name, Phone: r.Phone, Active: r.Active}, nil
}

type patientUpdateRequest struct {
	MedicalHistory []model.HistoryEntry `json:"medicalHistory"`
	Allergies      []model.Allergy      `json:"allergies"`
	Insurance      *model.Insurance     `json:"insurance"`
	Status         model.PatientStatus  `json:"status"`
	RiskLevel      model.RiskLevel      `json:"riskLevel"`
	Consent        *model.Consent       `json:"consent"`
}

func (r patientUpdateRequest) update() model.PatientUpdate {
	return model.PatientUpdate{
		MedicalHistory: r.MedicalHistory,
		Allergies:      r.Allergies,
		Insurance:      r.Insurance,
		Status:         r.Status,
		RiskLevel:      r.RiskLevel,
		Consent:        r.Consent,
	}
}

type assignRequest struct {
	DoctorID       string `json:"doctorId"`
	IsPrimary      bool   `json:"isPrimary"`
	Specialization string `json:"specialization"`
}

type medicationRequest struct {
	Name      string     `json:"name"`
	Dosage    string     `json:"dosage"`
	Frequency string     `json:"frequency"`
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
}

func (r medicationRequest) medication() model.Medication {
	m := model.Medication{Name: r.Name, Dosage: r.Dosage, Frequency: r.Frequency, EndDate: r.EndDate}
	if r.StartDate != nil {
		m.StartDate = *r.StartDate
	}
	return m
}

type vitalsRequest struct {
	BloodPressure *model.BloodPressure `json:"bloodPressure"`
	HeartRate     float64              `json:"heartRate"`
	Temperature   float64              `json:"temperature"`
	WeightKg      float64              `json:"weightKg"`
	HeightCm      float64              `json:"heightCm"`
}

func (r vitalsRequest) vitals() model.Vitals {
	return model.Vitals{
		BloodPressure: r.BloodPressure,
		HeartRate:     r.HeartRate,
		Temperature:   r.Temperature,
		WeightKg:      r.WeightKg,
		HeightCm:      r.HeightCm,
	}
}

type recordRequest struct {
	PatientID      string             `json:"patientId"`
	VisitDate      *time.Time         `json:"visitDate"`
	VisitType      model.VisitType    `json:"visitType"`
	ChiefComplaint string             `json:"chiefComplaint"`
	PresentIllness string             `json:"presentIllness"`
	Diagnoses      []model.Diagnosis  `json:"diagnoses"`
	Treatment      *model.Treatment   `json:"treatment"`
	ClinicalNotes  string             `json:"clinicalNotes"`
	PrivateNotes   string             `json:"privateNotes"`
	Status         model.RecordStatus `json:"status"`
	Priority       string             `json:"priority"`
}

func (r recordRequest) input() records.RecordInput {
	in := records.RecordInput{
		PatientID:      r.PatientID,
		VisitType:      r.VisitType,
		ChiefComplaint: r.ChiefComplaint,
		PresentIllness: r.PresentIllness,
		Diagnoses:      r.Diagnoses,
		Treatment:      r.Treatment,
		ClinicalNotes:  r.ClinicalNotes,
		PrivateNotes:   r.PrivateNotes,
		Status:         r.Status,
		Priority:       r.Priority,
	}
	if r.VisitDate != nil {
		in.VisitDate = *r.VisitDate
	}
	return in
}

type recordUpdateRequest struct {
	VisitType      model.VisitType    `json:"visitType"`
	ChiefComplaint *string            `json:"chiefComplaint"`
	PresentIllness *string            `json:"presentIllness"`
	Diagnoses      []model.Diagnosis  `json:"diagnoses"`
	Treatment      *model.Treatment   `json:"treatment"`
	ClinicalNotes  *string            `json:"clinicalNotes"`
	PrivateNotes   *string            `json:"privateNotes"`
	Status         model.RecordStatus `json:"status"`
	Priority       string             `json:"priority"`
}

func (r recordUpdateRequest) update() model.RecordUpdate {
	return model.RecordUpdate{
		VisitType:      r.VisitType,
		ChiefComplaint: r.ChiefComplaint,
		PresentIllness: r.PresentIllness,
		Diagnoses:      r.Diagnoses,
		Treatment:      r.Treatment,
		ClinicalNotes:  r.ClinicalNotes,
		PrivateNotes:   r.PrivateNotes,
		Status:         r.Status,
		Priority:       r.Priority,
	}
}

type shareRequest struct {
	UserID      string                  `json:"userId"`
	Permissions []model.SharePermission `json:"permissions"`
	ExpiresAt   *time.Time              `json:"expiresAt"`
}

type attachmentRequest struct {
	FileName string `json:"fileName"`
	FilePath string `json:"filePath"`
	FileType string `json:"fileType"`
	Size     int64  `json:"size"`
}
