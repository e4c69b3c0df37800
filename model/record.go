package model

import (
	"time"
)

// VisitType classifies the encounter a medical record documents.
type VisitType string

const (
	VisitConsultation   VisitType = "consultation"
	VisitFollowUp       VisitType = "follow-up"
	VisitEmergency      VisitType = "emergency"
	VisitRoutineCheckup VisitType = "routine-checkup"
	VisitProcedure      VisitType = "procedure"
	VisitLabReview      VisitType = "lab-review"
	VisitTelemedicine   VisitType = "telemedicine"
)

// RecordStatus is the editorial state of a medical record.
type RecordStatus string

const (
	RecordDraft         RecordStatus = "draft"
	RecordPendingReview RecordStatus = "pending-review"
	RecordCompleted     RecordStatus = "completed"
	RecordAmended       RecordStatus = "amended"
)

// SharePermission is one capability a share grant can carry.
type SharePermission string

const (
	ShareRead  SharePermission = "read"
	ShareWrite SharePermission = "write"
	ShareShare SharePermission = "share"
)

// AccessAction names an entry of a record's embedded access trail.
type AccessAction string

const (
	AccessCreated AccessAction = "created"
	AccessUpdated AccessAction = "updated"
	AccessViewed  AccessAction = "viewed"
	AccessShared  AccessAction = "shared"
	AccessDeleted AccessAction = "deleted"
)

// MedicalRecord is one clinical encounter. DoctorID is the author.
type MedicalRecord struct {
	ID               string          `bson:"_id" json:"id"`
	PatientID        string          `bson:"patientId" json:"patientId"`
	DoctorID         string          `bson:"doctorId" json:"doctorId"`
	VisitDate        time.Time       `bson:"visitDate" json:"visitDate"`
	VisitType        VisitType       `bson:"visitType" json:"visitType"`
	ChiefComplaint   string          `bson:"chiefComplaint" json:"chiefComplaint"`
	PresentIllness   string          `bson:"presentIllness,omitempty" json:"presentIllness,omitempty"`
	Diagnoses        []Diagnosis     `bson:"diagnoses,omitempty" json:"diagnoses,omitempty"`
	Treatment        *Treatment      `bson:"treatment,omitempty" json:"treatment,omitempty"`
	ClinicalNotes    string          `bson:"clinicalNotes,omitempty" json:"clinicalNotes,omitempty"`
	PrivateNotes     string          `bson:"privateNotes,omitempty" json:"privateNotes,omitempty"`
	Status           RecordStatus    `bson:"status" json:"status"`
	Priority         string          `bson:"priority" json:"priority"`
	Attachments      []Attachment    `bson:"attachments,omitempty" json:"attachments,omitempty"`
	SharedWith       []ShareGrant    `bson:"sharedWith,omitempty" json:"sharedWith,omitempty"`
	AccessLog        []AccessEntry   `bson:"accessLog,omitempty" json:"accessLog,omitempty"`
	Version          int             `bson:"version" json:"version"`
	PreviousVersions []RecordVersion `bson:"previousVersions,omitempty" json:"previousVersions,omitempty"`
	Deleted          bool            `bson:"deleted" json:"-"`
	CreatedAt        time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time       `bson:"updatedAt" json:"updatedAt"`
	// Revision increments on every write, access-log appends included.
	// Version only counts clinical edits.
	Revision int64 `bson:"revision" json:"-"`
}

type Diagnosis struct {
	Code        string `bson:"code,omitempty" json:"code,omitempty"`
	Description string `bson:"description" json:"description"`
	IsPrimary   bool   `bson:"isPrimary" json:"isPrimary"`
	Severity    string `bson:"severity,omitempty" json:"severity,omitempty"`
	Status      string `bson:"status,omitempty" json:"status,omitempty"`
}

type Treatment struct {
	Medications     []Prescription `bson:"medications,omitempty" json:"medications,omitempty"`
	Procedures      []Procedure    `bson:"procedures,omitempty" json:"procedures,omitempty"`
	Recommendations []string       `bson:"recommendations,omitempty" json:"recommendations,omitempty"`
	FollowUp        *FollowUp      `bson:"followUp,omitempty" json:"followUp,omitempty"`
}

type Prescription struct {
	Name         string `bson:"name" json:"name"`
	Dosage       string `bson:"dosage" json:"dosage"`
	Frequency    string `bson:"frequency" json:"frequency"`
	Duration     string `bson:"duration,omitempty" json:"duration,omitempty"`
	Instructions string `bson:"instructions,omitempty" json:"instructions,omitempty"`
}

type Procedure struct {
	Name   string     `bson:"name" json:"name"`
	Date   *time.Time `bson:"date,omitempty" json:"date,omitempty"`
	Status string     `bson:"status,omitempty" json:"status,omitempty"`
	Notes  string     `bson:"notes,omitempty" json:"notes,omitempty"`
}

type FollowUp struct {
	Required bool       `bson:"required" json:"required"`
	Date     *time.Time `bson:"date,omitempty" json:"date,omitempty"`
	Notes    string     `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Attachment is file metadata only. Storage of the bytes is handled
// outside this module.
type Attachment struct {
	ID         string    `bson:"id" json:"id"`
	FileName   string    `bson:"fileName" json:"fileName"`
	FilePath   string    `bson:"filePath" json:"filePath"`
	FileType   string    `bson:"fileType" json:"fileType"`
	Size       int64     `bson:"size" json:"size"`
	UploadedBy string    `bson:"uploadedBy" json:"uploadedBy"`
	UploadedAt time.Time `bson:"uploadedAt" json:"uploadedAt"`
}

// ShareGrant gives UserID access to a record until ExpiresAt. A nil
// ExpiresAt never expires.
type ShareGrant struct {
	UserID      string            `bson:"userId" json:"userId"`
	Permissions []SharePermission `bson:"permissions" json:"permissions"`
	SharedBy    string            `bson:"sharedBy" json:"sharedBy"`
	SharedAt    time.Time         `bson:"sharedAt" json:"sharedAt"`
	ExpiresAt   *time.Time        `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
}

// Live reports whether the grant is still in force at now.
func (g ShareGrant) Live(now time.Time) bool {
	return g.ExpiresAt == nil || g.ExpiresAt.After(now)
}

// Allows reports whether the grant carries perm. Write implies read.
func (g ShareGrant) Allows(perm SharePermission) bool {
	for _, p := range g.Permissions {
		if p == perm || (perm == ShareRead && p == ShareWrite) {
			return true
		}
	}
	return false
}

// AccessEntry is one line of the record's embedded access trail.
type AccessEntry struct {
	Action      AccessAction `bson:"action" json:"action"`
	PerformedBy string       `bson:"performedBy" json:"performedBy"`
	IPAddress   string       `bson:"ipAddress,omitempty" json:"ipAddress,omitempty"`
	Timestamp   time.Time    `bson:"timestamp" json:"timestamp"`
	Details     string       `bson:"details,omitempty" json:"details,omitempty"`
}

// RecordVersion is a snapshot of the clinical fields taken before an update.
type RecordVersion struct {
	Version        int         `bson:"version" json:"version"`
	ChiefComplaint string      `bson:"chiefComplaint" json:"chiefComplaint"`
	Diagnoses      []Diagnosis `bson:"diagnoses,omitempty" json:"diagnoses,omitempty"`
	ClinicalNotes  string      `bson:"clinicalNotes,omitempty" json:"clinicalNotes,omitempty"`
	ModifiedBy     string      `bson:"modifiedBy" json:"modifiedBy"`
	ModifiedAt     time.Time   `bson:"modifiedAt" json:"modifiedAt"`
}

// LiveGrant returns the unexpired grant held by userID, if any.
func (r *MedicalRecord) LiveGrant(userID string, now time.Time) (ShareGrant, bool) {
	if r == nil || userID == "" {
		return ShareGrant{}, false
	}
	for _, g := range r.SharedWith {
		if g.UserID == userID && g.Live(now) {
			return g, true
		}
	}
	return ShareGrant{}, false
}

// Share replaces any existing grant for g.UserID with g.
func (r *MedicalRecord) Share(g ShareGrant) {
	out := r.SharedWith[:0]
	for _, existing := range r.SharedWith {
		if existing.UserID != g.UserID {
			out = append(out, existing)
		}
	}
	r.SharedWith = append(out, g)
}

// NormalizeDiagnoses keeps the first primary diagnosis and demotes the rest.
func (r *MedicalRecord) NormalizeDiagnoses() {
	seen := false
	for i := range r.Diagnoses {
		if !r.Diagnoses[i].IsPrimary {
			continue
		}
		if seen {
			r.Diagnoses[i].IsPrimary = false
		}
		seen = true
	}
}

// Snapshot captures the clinical fields as a RecordVersion.
func (r *MedicalRecord) Snapshot(by string, at time.Time) RecordVersion {
	return RecordVersion{
		Version:        r.Version,
		ChiefComplaint: r.ChiefComplaint,
		Diagnoses:      append([]Diagnosis(nil), r.Diagnoses...),
		ClinicalNotes:  r.ClinicalNotes,
		ModifiedBy:     by,
		ModifiedAt:     at,
	}
}

// Attachment looks up an attachment by id.
func (r *MedicalRecord) Attachment(id string) (Attachment, bool) {
	for _, a := range r.Attachments {
		if a.ID == id {
			return a, true
		}
	}
	return Attachment{}, false
}

// RemoveAttachment drops the attachment with id and reports whether it existed.
func (r *MedicalRecord) RemoveAttachment(id string) bool {
	for i, a := range r.Attachments {
		if a.ID == id {
			r.Attachments = append(r.Attachments[:i], r.Attachments[i+1:]...)
			return true
		}
	}
	return false
}

// RecordFilter narrows record listings. VisibleTo restricts the result to
// records authored by or shared with that identity.
type RecordFilter struct {
	PatientID string
	VisibleTo string
	Query     string
	Page      int
	Limit     int
}

// RecordUpdate holds the editable clinical fields of a record.
type RecordUpdate struct {
	VisitType      VisitType
	ChiefComplaint *string
	PresentIllness *string
	Diagnoses      []Diagnosis
	Treatment      *Treatment
	ClinicalNotes  *string
	PrivateNotes   *string
	Status         RecordStatus
	Priority       string
}

// Apply copies the provided fields of u onto r.
func (u RecordUpdate) Apply(r *MedicalRecord) {
	if u.VisitType != "" {
		r.VisitType = u.VisitType
	}
	if u.ChiefComplaint != nil {
		r.ChiefComplaint = *u.ChiefComplaint
	}
	if u.PresentIllness != nil {
		r.PresentIllness = *u.PresentIllness
	}
	if u.Diagnoses != nil {
		r.Diagnoses = u.Diagnoses
	}
	if u.Treatment != nil {
		r.Treatment = u.Treatment
	}
	if u.ClinicalNotes != nil {
		r.ClinicalNotes = *u.ClinicalNotes
	}
	if u.PrivateNotes != nil {
		r.PrivateNotes = *u.PrivateNotes
	}
	if u.Status != "" {
		r.Status = u.Status
	}
	if u.Priority != "" {
		r.Priority = u.Priority
	}
}
