package records

import (
	"context"
	"fmt"

	"github.com/MrEthical07/medvault/access"
	"github.com/MrEthical07/medvault/internal/audit"
	"github.com/MrEthical07/medvault/model"
	"github.com/MrEthical07/medvault/permission"
)

// ListPatients returns charts visible to caller. Doctors only see charts
// they are assigned to; admins see every chart.
func (s *Service) ListPatients(ctx context.Context, caller *model.Identity, f model.PatientFilter) (model.Page[model.Patient], error) {
	if err := s.check(ctx, caller, s.evaluator.Can(actor(caller), permission.PatientList), "patients"); err != nil {
		return model.Page[model.Patient]{}, err
	}
	if caller.Role == model.RoleDoctor {
		f.DoctorID = caller.ID
	}
	f.Page, f.Limit = model.Normalize(f.Page, f.Limit, maxPageSize)
	items, total, err := s.patients.ListPatients(ctx, f)
	if err != nil {
		return model.Page[model.Patient]{}, fmt.Errorf("list patients: %w", err)
	}
	return model.NewPage(items, total, f.Page, f.Limit), nil
}

// GetPatient returns one chart.
func (s *Service) GetPatient(ctx context.Context, caller *model.Identity, id string) (*model.Patient, error) {
	p, err := s.loadPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(ctx, caller, s.evaluator.Patient(actor(caller), access.Read, p), p.ID); err != nil {
		return nil, err
	}
	return p, nil
}

// MyChart returns the chart owned by a patient caller.
func (s *Service) MyChart(ctx context.Context, caller *model.Identity) (*model.Patient, error) {
	p, err := s.patients.PatientByUserID(ctx, caller.ID)
	if err != nil {
		return nil, storeErr("load patient", err)
	}
	if err := s.check(ctx, caller, s.evaluator.Patient(actor(caller), access.Read, p), p.ID); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdatePatient applies u to chart id.
func (s *Service) UpdatePatient(ctx context.Context, caller *model.Identity, id string, u model.PatientUpdate) (*model.Patient, error) {
	return retryConflict(ctx, func() (*model.Patient, error) {
		return s.updatePatient(ctx, caller, id, u)
	})
}

func (s *Service) updatePatient(ctx context.Context, caller *model.Identity, id string, u model.PatientUpdate) (*model.Patient, error) {
	p, err := s.loadPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(ctx, caller, s.evaluator.Patient(actor(caller), access.Update, p), p.ID); err != nil {
		return nil, err
	}
	if err := validatePatientUpdate(u); err != nil {
		return nil, err
	}

	u.Apply(p)
	p.LastUpdatedBy = caller.ID
	p.UpdatedAt = s.now()
	if err := s.patients.SavePatient(ctx, p); err != nil {
		return nil, storeErr("save patient", err)
	}
	s.audit(ctx, audit.ActionPatientUpdate, caller, true, map[string]string{"target": p.ID})
	return p, nil
}

// AssignInput names the doctor to attach to a chart.
type AssignInput struct {
	DoctorID       string
	IsPrimary      bool
	Specialization string
}

// AssignDoctor adds or replaces an assignment. A new primary demotes any
// previous primary doctor.
func (s *Service) AssignDoctor(ctx context.Context, caller *model.Identity, patientID string, in AssignInput) (*model.Patient, error) {
	return retryConflict(ctx, func() (*model.Patient, error) {
		return s.assignDoctor(ctx, caller, patientID, in)
	})
}

func (s *Service) assignDoctor(ctx context.Context, caller *model.Identity, patientID string, in AssignInput) (*model.Patient, error) {
	p, err := s.loadPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if err := s.check(ctx, caller, s.evaluator.Patient(actor(caller), access.Assign, p), p.ID); err != nil {
		return nil, err
	}
	doctor, err := s.activeIdentity(ctx, in.DoctorID, model.RoleDoctor)
	if err != nil {
		return nil, err
	}

	spec := model.Sanitize(in.Specialization)
	if spec == "" && doctor.Doctor != nil {
		spec = doctor.Doctor.Specialization
	}
	now := s.now()
	p.Assign(model.DoctorAssignment{DoctorID: doctor.ID, AssignedAt: now, IsPrimary: in.IsPrimary, Specialization: spec})
	p.LastUpdatedBy = caller.ID
	p.UpdatedAt = now
	if err := s.patients.SavePatient(ctx, p); err != nil {
		return nil, storeErr("save patient", err)
	}
	s.audit(ctx, audit.ActionDoctorAssign, caller, true, map[string]string{"target": p.ID, "doctor_id": doctor.ID})
	return p, nil
}

// UnassignDoctor removes doctorID from the chart.
func (s *Service) UnassignDoctor(ctx context.Context, caller *model.Identity, patientID, doctorID string) (*model.Patient, error) {
	return retryConflict(ctx, func() (*model.Patient, error) {
		return s.unassignDoctor(ctx, caller, patientID, doctorID)
	})
}

func (s *Service) unassignDoctor(ctx context.Context, caller *model.Identity, patientID, doctorID string) (*model.Patient, error) {
	p, err := s.loadPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if err := s.check(ctx, caller, s.evaluator.Patient(actor(caller), access.Assign, p), p.ID); err != nil {
		return nil, err
	}
	if !p.Unassign(doctorID) {
		return nil, model.ErrNotFound
	}
	p.LastUpdatedBy = caller.ID
	p.UpdatedAt = s.now()
	if err := s.patients.SavePatient(ctx, p); err != nil {
		return nil, storeErr("save patient", err)
	}
	s.audit(ctx, audit.ActionDoctorUnassign, caller, true, map[string]string{"target": p.ID, "doctor_id": doctorID})
	return p, nil
}

// AddMedication prescribes m. The caller is recorded as prescriber.
func (s *Service) AddMedication(ctx context.Context, caller *model.Identity, patientID string, m model.Medication) (*model.Patient, error) {
	return retryConflict(ctx, func() (*model.Patient, error) {
		return s.addMedication(ctx, caller, patientID, m)
	})
}

func (s *Service) addMedication(ctx context.Context, caller *model.Identity, patientID string, m model.Medication) (*model.Patient, error) {
	p, err := s.loadPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if err := s.check(ctx, caller, s.evaluator.Patient(actor(caller), access.Clinical, p), p.ID); err != nil {
		return nil, err
	}

	m.Name = model.Sanitize(m.Name)
	m.Dosage = model.Sanitize(m.Dosage)
	m.Frequency = model.Sanitize(m.Frequency)
	var fields []string
	if m.Name == "" || m.Dosage == "" || m.Frequency == "" {
		fields = append(fields, "medication name, dosage and frequency are required")
	}
	if m.EndDate != nil && !m.StartDate.IsZero() && m.EndDate.Before(m.StartDate) {
		fields = append(fields, "medication end date is before its start date")
	}
	if err := model.Invalid(fields...); err != nil {
		return nil, err
	}

	now := s.now()
	if m.StartDate.IsZero() {
		m.StartDate = now
	}
	m.PrescribedBy = caller.ID
	m.IsActive = true
	p.Medications = append(p.Medications, m)
	p.LastUpdatedBy = caller.ID
	p.UpdatedAt = now
	if err := s.patients.SavePatient(ctx, p); err != nil {
		return nil, storeErr("save patient", err)
	}
	s.audit(ctx, audit.ActionPatientUpdate, caller, true, map[string]string{"target": p.ID, "change": "medication"})
	return p, nil
}

// AddVitals records a measurement session taken by the caller.
func (s *Service) AddVitals(ctx context.Context, caller *model.Identity, patientID string, v model.Vitals) (*model.Patient, error) {
	return retryConflict(ctx, func() (*model.Patient, error) {
		return s.addVitals(ctx, caller, patientID, v)
	})
}

func (s *Service) addVitals(ctx context.Context, caller *model.Identity, patientID string, v model.Vitals) (*model.Patient, error) {
	p, err := s.loadPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if err := s.check(ctx, caller, s.evaluator.Patient(actor(caller), access.Clinical, p), p.ID); err != nil {
		return nil, err
	}
	if err := validateVitals(v); err != nil {
		return nil, err
	}

	now := s.now()
	v.RecordedAt = now
	v.RecordedBy = caller.ID
	p.Vitals = append(p.Vitals, v)
	p.LastUpdatedBy = caller.ID
	p.UpdatedAt = now
	if err := s.patients.SavePatient(ctx, p); err != nil {
		return nil, storeErr("save patient", err)
	}
	s.audit(ctx, audit.ActionPatientUpdate, caller, true, map[string]string{"target": p.ID, "change": "vitals"})
	return p, nil
}

// History is the clinical summary of a chart.
type History struct {
	MedicalHistory    []model.HistoryEntry `json:"medicalHistory"`
	Allergies         []model.Allergy      `json:"allergies"`
	ActiveMedications []model.Medication   `json:"activeMedications"`
	LatestVitals      *model.Vitals        `json:"latestVitals,omitempty"`
	BMI               float64              `json:"bmi,omitempty"`
}

// PatientHistory returns the summary; only active medications are listed.
func (s *Service) PatientHistory(ctx context.Context, caller *model.Identity, patientID string) (*History, error) {
	p, err := s.GetPatient(ctx, caller, patientID)
	if err != nil {
		return nil, err
	}
	h := &History{
		MedicalHistory:    p.MedicalHistory,
		Allergies:         p.Allergies,
		ActiveMedications: p.ActiveMedications(),
		BMI:               p.BMI(),
	}
	if v, ok := p.LatestVitals(); ok {
		h.LatestVitals = &v
	}
	return h, nil
}

func validatePatientUpdate(u model.PatientUpdate) error {
	var fields []string
	switch u.Status {
	case "", model.PatientActive, model.PatientInactive, model.PatientDeceased, model.PatientTransferred:
	default:
		fields = append(fields, "status is invalid")
	}
	switch u.RiskLevel {
	case "", model.RiskLow, model.RiskMedium, model.RiskHigh, model.RiskCritical:
	default:
		fields = append(fields, "risk level is invalid")
	}
	for _, a := range u.Allergies {
		if a.Allergen == "" {
			fields = append(fields, "allergen is required")
			break
		}
	}
	for _, h := range u.MedicalHistory {
		if h.Condition == "" {
			fields = append(fields, "history condition is required")
			break
		}
	}
	return model.Invalid(fields...)
}

func validateVitals(v model.Vitals) error {
	var fields []string
	if bp := v.BloodPressure; bp != nil {
		if bp.Systolic <= 0 || bp.Diastolic <= 0 || bp.Diastolic >= bp.Systolic {
			fields = append(fields, "blood pressure is invalid")
		}
	}
	if v.HeartRate < 0 || v.HeartRate > 300 {
		fields = append(fields, "heart rate is out of range")
	}
	if v.Temperature != 0 && (v.Temperature < 25 || v.Temperature > 45) {
		fields = append(fields, "temperature must be in degrees Celsius")
	}
	if v.WeightKg < 0 || v.WeightKg > 700 {
		fields = append(fields, "weight is out of range")
	}
	if v.HeightCm < 0 || v.HeightCm > 300 {
		fields = append(fields, "height is out of range")
	}
	if v.BloodPressure == nil && v.HeartRate == 0 && v.Temperature == 0 && v.WeightKg == 0 && v.HeightCm == 0 {
		fields = append(fields, "at least one measurement is required")
	}
	return model.Invalid(fields...)
}
