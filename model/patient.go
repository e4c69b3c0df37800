package model

import (
	"time"
)

// PatientStatus is the administrative state of a patient chart.
type PatientStatus string

const (
	PatientActive      PatientStatus = "active"
	PatientInactive    PatientStatus = "inactive"
	PatientDeceased    PatientStatus = "deceased"
	PatientTransferred PatientStatus = "transferred"
)

// RiskLevel is the clinical risk classification of a patient.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Patient is the clinical chart owned 1:1 by a patient identity. It is the
// hub of the relationship graph used by access decisions: AssignedDoctors
// lists the doctors allowed to treat the owner.
type Patient struct {
	ID              string             `bson:"_id" json:"id"`
	UserID          string             `bson:"userId" json:"userId"`
	AssignedDoctors []DoctorAssignment `bson:"assignedDoctors" json:"assignedDoctors"`
	MedicalHistory  []HistoryEntry     `bson:"medicalHistory,omitempty" json:"medicalHistory,omitempty"`
	Allergies       []Allergy          `bson:"allergies,omitempty" json:"allergies,omitempty"`
	Medications     []Medication       `bson:"medications,omitempty" json:"medications,omitempty"`
	Vitals          []Vitals           `bson:"vitals,omitempty" json:"vitals,omitempty"`
	Insurance       *Insurance         `bson:"insurance,omitempty" json:"insurance,omitempty"`
	Status          PatientStatus      `bson:"status" json:"status"`
	RiskLevel       RiskLevel          `bson:"riskLevel" json:"riskLevel"`
	Consent         Consent            `bson:"consent" json:"consent"`
	LastUpdatedBy   string             `bson:"lastUpdatedBy,omitempty" json:"lastUpdatedBy,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
	// Revision increments on every save and guards against lost updates.
	Revision int64 `bson:"revision" json:"-"`
}

// DoctorAssignment links a doctor identity to a patient chart.
type DoctorAssignment struct {
	DoctorID       string    `bson:"doctorId" json:"doctorId"`
	AssignedAt     time.Time `bson:"assignedAt" json:"assignedAt"`
	IsPrimary      bool      `bson:"isPrimary" json:"isPrimary"`
	Specialization string    `bson:"specialization,omitempty" json:"specialization,omitempty"`
}

type HistoryEntry struct {
	Condition   string     `bson:"condition" json:"condition"`
	DiagnosedAt *time.Time `bson:"diagnosedAt,omitempty" json:"diagnosedAt,omitempty"`
	Status      string     `bson:"status,omitempty" json:"status,omitempty"`
	Notes       string     `bson:"notes,omitempty" json:"notes,omitempty"`
}

type Allergy struct {
	Allergen string `bson:"allergen" json:"allergen"`
	Severity string `bson:"severity" json:"severity"`
	Reaction string `bson:"reaction,omitempty" json:"reaction,omitempty"`
}

// Medication is a prescription entry. PrescribedBy is always the acting
// doctor, never caller supplied.
type Medication struct {
	Name         string     `bson:"name" json:"name"`
	Dosage       string     `bson:"dosage" json:"dosage"`
	Frequency    string     `bson:"frequency" json:"frequency"`
	StartDate    time.Time  `bson:"startDate" json:"startDate"`
	EndDate      *time.Time `bson:"endDate,omitempty" json:"endDate,omitempty"`
	PrescribedBy string     `bson:"prescribedBy" json:"prescribedBy"`
	IsActive     bool       `bson:"isActive" json:"isActive"`
}

// Vitals is one measurement session. Weight is kilograms, height centimeters.
type Vitals struct {
	BloodPressure *BloodPressure `bson:"bloodPressure,omitempty" json:"bloodPressure,omitempty"`
	HeartRate     float64        `bson:"heartRate,omitempty" json:"heartRate,omitempty"`
	Temperature   float64        `bson:"temperature,omitempty" json:"temperature,omitempty"`
	WeightKg      float64        `bson:"weightKg,omitempty" json:"weightKg,omitempty"`
	HeightCm      float64        `bson:"heightCm,omitempty" json:"heightCm,omitempty"`
	RecordedAt    time.Time      `bson:"recordedAt" json:"recordedAt"`
	RecordedBy    string         `bson:"recordedBy" json:"recordedBy"`
}

type BloodPressure struct {
	Systolic  int `bson:"systolic" json:"systolic"`
	Diastolic int `bson:"diastolic" json:"diastolic"`
}

type Insurance struct {
	Provider     string     `bson:"provider" json:"provider"`
	PolicyNumber string     `bson:"policyNumber" json:"policyNumber"`
	GroupNumber  string     `bson:"groupNumber,omitempty" json:"groupNumber,omitempty"`
	ExpiresAt    *time.Time `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
}

type Consent struct {
	DataSharing bool       `bson:"dataSharing" json:"dataSharing"`
	Research    bool       `bson:"research" json:"research"`
	SignedAt    *time.Time `bson:"signedAt,omitempty" json:"signedAt,omitempty"`
}

// IsOwnedBy reports whether identityID is the patient who owns the chart.
func (p *Patient) IsOwnedBy(identityID string) bool {
	return p != nil && identityID != "" && p.UserID == identityID
}

// IsAssigned reports whether doctorID appears in AssignedDoctors.
func (p *Patient) IsAssigned(doctorID string) bool {
	if p == nil || doctorID == "" {
		return false
	}
	for _, a := range p.AssignedDoctors {
		if a.DoctorID == doctorID {
			return true
		}
	}
	return false
}

// Assign adds or replaces the assignment for a.DoctorID. A primary
// assignment demotes every other doctor so that at most one stays primary.
func (p *Patient) Assign(a DoctorAssignment) {
	out := p.AssignedDoctors[:0]
	for _, existing := range p.AssignedDoctors {
		if existing.DoctorID == a.DoctorID {
			continue
		}
		if a.IsPrimary {
			existing.IsPrimary = false
		}
		out = append(out, existing)
	}
	p.AssignedDoctors = append(out, a)
}

// Unassign removes doctorID and reports whether it was present.
func (p *Patient) Unassign(doctorID string) bool {
	for i, a := range p.AssignedDoctors {
		if a.DoctorID == doctorID {
			p.AssignedDoctors = append(p.AssignedDoctors[:i], p.AssignedDoctors[i+1:]...)
			return true
		}
	}
	return false
}

// PrimaryDoctor returns the primary doctor id, if any.
func (p *Patient) PrimaryDoctor() (string, bool) {
	for _, a := range p.AssignedDoctors {
		if a.IsPrimary {
			return a.DoctorID, true
		}
	}
	return "", false
}

// ActiveMedications filters Medications down to the currently active ones.
func (p *Patient) ActiveMedications() []Medication {
	out := make([]Medication, 0, len(p.Medications))
	for _, m := range p.Medications {
		if m.IsActive {
			out = append(out, m)
		}
	}
	return out
}

// LatestVitals returns the most recently recorded vitals entry.
func (p *Patient) LatestVitals() (Vitals, bool) {
	var latest Vitals
	found := false
	for _, v := range p.Vitals {
		if !found || v.RecordedAt.After(latest.RecordedAt) {
			latest = v
			found = true
		}
	}
	return latest, found
}

// BMI returns body mass index from the latest vitals carrying both weight
// and height, or 0 when unknown.
func (p *Patient) BMI() float64 {
	v, ok := p.LatestVitals()
	if !ok || v.WeightKg <= 0 || v.HeightCm <= 0 {
		return 0
	}
	m := v.HeightCm / 100
	return v.WeightKg / (m * m)
}

// PatientFilter narrows patient listings. DoctorID scopes the result to
// charts the doctor is assigned to.
type PatientFilter struct {
	DoctorID  string
	Status    PatientStatus
	RiskLevel RiskLevel
	Page      int
	Limit     int
}

// PatientUpdate holds the chart fields editable through the API.
type PatientUpdate struct {
	MedicalHistory []HistoryEntry
	Allergies      []Allergy
	Insurance      *Insurance
	Status         PatientStatus
	RiskLevel      RiskLevel
	Consent        *Consent
}

// Apply copies the non-empty fields of u onto p.
func (u PatientUpdate) Apply(p *Patient) {
	if u.MedicalHistory != nil {
		p.MedicalHistory = u.MedicalHistory
	}
	if u.Allergies != nil {
		p.Allergies = u.Allergies
	}
	if u.Insurance != nil {
		p.Insurance = u.Insurance
	}
	if u.Status != "" {
		p.Status = u.Status
	}
	if u.RiskLevel != "" {
		p.RiskLevel = u.RiskLevel
	}
	if u.Consent != nil {
		p.Consent = *u.Consent
	}
}
