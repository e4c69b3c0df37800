package records

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/medvault"
	"github.com/MrEthical07/medvault/access"
	"github.com/MrEthical07/medvault/internal/audit"
	"github.com/MrEthical07/medvault/model"
	"github.com/MrEthical07/medvault/permission"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ListRecords lists records for doctors (authored or shared with them) and
// admins (all). query, when set, is a full-text search.
func (s *Service) ListRecords(ctx context.Context, caller *model.Identity, query string, page, limit int) (model.Page[model.MedicalRecord], error) {
	if err := s.check(ctx, caller, s.evaluator.Can(actor(caller), permission.RecordList), "records"); err != nil {
		return model.Page[model.MedicalRecord]{}, err
	}
	f := model.RecordFilter{Query: query}
	if caller.Role == model.RoleDoctor {
		f.VisibleTo = caller.ID
	}
	return s.listRecords(ctx, caller, f, page, limit)
}

// PatientRecords lists every record of one chart to callers allowed to read
// the chart.
func (s *Service) PatientRecords(ctx context.Context, caller *model.Identity, patientID string, page, limit int) (model.Page[model.MedicalRecord], error) {
	p, err := s.loadPatient(ctx, patientID)
	if err != nil {
		return model.Page[model.MedicalRecord]{}, err
	}
	if err := s.check(ctx, caller, s.evaluator.Patient(actor(caller), access.Read, p), p.ID); err != nil {
		return model.Page[model.MedicalRecord]{}, err
	}
	return s.listRecords(ctx, caller, model.RecordFilter{PatientID: p.ID}, page, limit)
}

func (s *Service) listRecords(ctx context.Context, caller *model.Identity, f model.RecordFilter, page, limit int) (model.Page[model.MedicalRecord], error) {
	f.Page, f.Limit = model.Normalize(page, limit, maxPageSize)
	items, total, err := s.records.ListRecords(ctx, f)
	if err != nil {
		return model.Page[model.MedicalRecord]{}, fmt.Errorf("list records: %w", err)
	}
	for i := range items {
		redact(caller, &items[i])
	}
	return model.NewPage(items, total, f.Page, f.Limit), nil
}

// RecordInput is the caller-supplied part of a new record.
type RecordInput struct {
	PatientID      string
	VisitDate      time.Time
	VisitType      model.VisitType
	ChiefComplaint string
	PresentIllness string
	Diagnoses      []model.Diagnosis
	Treatment      *model.Treatment
	ClinicalNotes  string
	PrivateNotes   string
	Status         model.RecordStatus
	Priority       string
}

// CreateRecord authors a record. Only a doctor assigned to the patient may
// do so; the caller becomes the author.
func (s *Service) CreateRecord(ctx context.Context, caller *model.Identity, in RecordInput) (*model.MedicalRecord, error) {
	p, err := s.loadPatient(ctx, in.PatientID)
	if err != nil {
		return nil, err
	}
	if err := s.check(ctx, caller, s.evaluator.CreateRecord(actor(caller), p), p.ID); err != nil {
		return nil, err
	}

	now := s.now()
	r := &model.MedicalRecord{
		ID:             uuid.NewString(),
		PatientID:      p.ID,
		DoctorID:       caller.ID,
		VisitDate:      in.VisitDate,
		VisitType:      in.VisitType,
		ChiefComplaint: model.Sanitize(in.ChiefComplaint),
		PresentIllness: model.Sanitize(in.PresentIllness),
		Diagnoses:      in.Diagnoses,
		Treatment:      in.Treatment,
		ClinicalNotes:  model.Sanitize(in.ClinicalNotes),
		PrivateNotes:   model.Sanitize(in.PrivateNotes),
		Status:         in.Status,
		Priority:       in.Priority,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if r.VisitDate.IsZero() {
		r.VisitDate = now
	}
	if r.Status == "" {
		r.Status = model.RecordDraft
	}
	if r.Priority == "" {
		r.Priority = "medium"
	}
	if err := model.ValidateRecord(r); err != nil {
		return nil, err
	}
	r.NormalizeDiagnoses()
	r.AccessLog = []model.AccessEntry{s.entry(ctx, caller, model.AccessCreated, "")}

	if err := s.records.CreateRecord(ctx, r); err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}
	s.audit(ctx, audit.ActionRecordCreate, caller, true, map[string]string{"target": r.ID, "patient_id": p.ID})
	return r, nil
}

// GetRecord returns one record and appends a "viewed" entry to its trail.
func (s *Service) GetRecord(ctx context.Context, caller *model.Identity, id string) (*model.MedicalRecord, error) {
	r, p, err := s.loadRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(ctx, caller, s.evaluator.Record(actor(caller), access.Read, r, p, s.now()), r.ID); err != nil {
		return nil, err
	}
	entry := s.entry(ctx, caller, model.AccessViewed, "")
	if err := s.records.AppendAccess(ctx, r.ID, entry); err != nil {
		s.logger.Warn("append access entry failed", zap.String("record_id", r.ID), zap.Error(err))
	} else {
		r.AccessLog = append(r.AccessLog, entry)
	}
	redact(caller, r)
	return r, nil
}

// UpdateRecord applies u. The previous clinical fields are kept as a
// version snapshot and Version increments.
func (s *Service) UpdateRecord(ctx context.Context, caller *model.Identity, id string, u model.RecordUpdate) (*model.MedicalRecord, error) {
	return retryConflict(ctx, func() (*model.MedicalRecord, error) {
		return s.updateRecord(ctx, caller, id, u)
	})
}

func (s *Service) updateRecord(ctx context.Context, caller *model.Identity, id string, u model.RecordUpdate) (*model.MedicalRecord, error) {
	r, p, err := s.loadRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.check(ctx, caller, s.evaluator.Record(actor(caller), access.Update, r, p, now), r.ID); err != nil {
		return nil, err
	}

	snapshot := r.Snapshot(caller.ID, now)
	sanitizeUpdate(&u)
	u.Apply(r)
	if err := model.ValidateRecord(r); err != nil {
		return nil, err
	}
	r.NormalizeDiagnoses()
	r.PreviousVersions = append(r.PreviousVersions, snapshot)
	r.Version++
	r.UpdatedAt = now
	r.AccessLog = append(r.AccessLog, s.entry(ctx, caller, model.AccessUpdated, fmt.Sprintf("version %d", r.Version)))

	if err := s.records.SaveRecord(ctx, r); err != nil {
		return nil, storeErr("save record", err)
	}
	s.audit(ctx, audit.ActionRecordUpdate, caller, true, map[string]string{"target": r.ID})
	redact(caller, r)
	return r, nil
}

// DeleteRecord soft-deletes a record.
func (s *Service) DeleteRecord(ctx context.Context, caller *model.Identity, id string) error {
	_, err := retryConflict(ctx, func() (struct{}, error) {
		return struct{}{}, s.deleteRecord(ctx, caller, id)
	})
	return err
}

func (s *Service) deleteRecord(ctx context.Context, caller *model.Identity, id string) error {
	r, p, err := s.loadRecord(ctx, id)
	if err != nil {
		return err
	}
	now := s.now()
	if err := s.check(ctx, caller, s.evaluator.Record(actor(caller), access.Delete, r, p, now), r.ID); err != nil {
		return err
	}
	r.AccessLog = append(r.AccessLog, s.entry(ctx, caller, model.AccessDeleted, ""))
	r.Deleted = true
	r.UpdatedAt = now
	if err := s.records.SaveRecord(ctx, r); err != nil {
		return storeErr("delete record", err)
	}
	s.audit(ctx, audit.ActionRecordDelete, caller, true, map[string]string{"target": r.ID})
	return nil
}

// ShareInput grants another doctor access to a record.
type ShareInput struct {
	UserID      string
	Permissions []model.SharePermission
	ExpiresAt   *time.Time
}

// ShareRecord replaces any earlier grant held by in.UserID.
func (s *Service) ShareRecord(ctx context.Context, caller *model.Identity, id string, in ShareInput) (*model.MedicalRecord, error) {
	return retryConflict(ctx, func() (*model.MedicalRecord, error) {
		return s.shareRecord(ctx, caller, id, in)
	})
}

func (s *Service) shareRecord(ctx context.Context, caller *model.Identity, id string, in ShareInput) (*model.MedicalRecord, error) {
	r, p, err := s.loadRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.check(ctx, caller, s.evaluator.Record(actor(caller), access.Share, r, p, now), r.ID); err != nil {
		return nil, err
	}
	if err := model.ValidateSharePermissions(in.Permissions); err != nil {
		return nil, err
	}
	if in.UserID == caller.ID || in.UserID == r.DoctorID {
		return nil, model.Invalid("cannot share a record with its author")
	}
	if in.ExpiresAt != nil && !in.ExpiresAt.After(now) {
		return nil, model.Invalid("share expiry must be in the future")
	}
	if _, err := s.activeIdentity(ctx, in.UserID, model.RoleDoctor); err != nil {
		return nil, err
	}

	r.Share(model.ShareGrant{
		UserID:      in.UserID,
		Permissions: in.Permissions,
		SharedBy:    caller.ID,
		SharedAt:    now,
		ExpiresAt:   in.ExpiresAt,
	})
	r.AccessLog = append(r.AccessLog, s.entry(ctx, caller, model.AccessShared, "shared with "+in.UserID))
	r.UpdatedAt = now
	if err := s.records.SaveRecord(ctx, r); err != nil {
		return nil, storeErr("save record", err)
	}
	s.audit(ctx, audit.ActionRecordShare, caller, true, map[string]string{"target": r.ID, "shared_with": in.UserID})
	redact(caller, r)
	return r, nil
}

// AttachmentInput is attachment metadata. The bytes are stored elsewhere.
type AttachmentInput struct {
	FileName string
	FilePath string
	FileType string
	Size     int64
}

// AddAttachment records attachment metadata on a record.
func (s *Service) AddAttachment(ctx context.Context, caller *model.Identity, id string, in AttachmentInput) (*model.Attachment, error) {
	return retryConflict(ctx, func() (*model.Attachment, error) {
		return s.addAttachment(ctx, caller, id, in)
	})
}

func (s *Service) addAttachment(ctx context.Context, caller *model.Identity, id string, in AttachmentInput) (*model.Attachment, error) {
	r, p, err := s.loadRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.check(ctx, caller, s.evaluator.Attachment(actor(caller), access.Attach, r, p, now), r.ID); err != nil {
		return nil, err
	}
	in.FileName = model.Sanitize(in.FileName)
	if in.FileName == "" || in.FilePath == "" || in.Size <= 0 {
		return nil, model.Invalid("file name, path and a positive size are required")
	}

	a := model.Attachment{
		ID:         uuid.NewString(),
		FileName:   in.FileName,
		FilePath:   in.FilePath,
		FileType:   in.FileType,
		Size:       in.Size,
		UploadedBy: caller.ID,
		UploadedAt: now,
	}
	r.Attachments = append(r.Attachments, a)
	r.AccessLog = append(r.AccessLog, s.entry(ctx, caller, model.AccessUpdated, "attached "+a.FileName))
	r.UpdatedAt = now
	if err := s.records.SaveRecord(ctx, r); err != nil {
		return nil, storeErr("save record", err)
	}
	s.audit(ctx, audit.ActionRecordAttach, caller, true, map[string]string{"target": r.ID, "attachment_id": a.ID})
	return &a, nil
}

// GetAttachment returns attachment metadata after a read decision.
func (s *Service) GetAttachment(ctx context.Context, caller *model.Identity, id, attachmentID string) (*model.Attachment, error) {
	r, p, err := s.loadRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(ctx, caller, s.evaluator.Attachment(actor(caller), access.Read, r, p, s.now()), r.ID); err != nil {
		return nil, err
	}
	a, ok := r.Attachment(attachmentID)
	if !ok {
		return nil, model.ErrNotFound
	}
	return &a, nil
}

// RemoveAttachment deletes attachment metadata.
func (s *Service) RemoveAttachment(ctx context.Context, caller *model.Identity, id, attachmentID string) error {
	_, err := retryConflict(ctx, func() (struct{}, error) {
		return struct{}{}, s.removeAttachment(ctx, caller, id, attachmentID)
	})
	return err
}

func (s *Service) removeAttachment(ctx context.Context, caller *model.Identity, id, attachmentID string) error {
	r, p, err := s.loadRecord(ctx, id)
	if err != nil {
		return err
	}
	now := s.now()
	if err := s.check(ctx, caller, s.evaluator.Attachment(actor(caller), access.Delete, r, p, now), r.ID); err != nil {
		return err
	}
	if !r.RemoveAttachment(attachmentID) {
		return model.ErrNotFound
	}
	r.AccessLog = append(r.AccessLog, s.entry(ctx, caller, model.AccessUpdated, "removed attachment "+attachmentID))
	r.UpdatedAt = now
	if err := s.records.SaveRecord(ctx, r); err != nil {
		return storeErr("save record", err)
	}
	s.audit(ctx, audit.ActionRecordAttach, caller, true, map[string]string{"target": r.ID, "removed": attachmentID})
	return nil
}

func (s *Service) entry(ctx context.Context, caller *model.Identity, action model.AccessAction, details string) model.AccessEntry {
	return model.AccessEntry{
		Action:      action,
		PerformedBy: caller.ID,
		IPAddress:   medvault.ClientIP(ctx),
		Timestamp:   s.now(),
		Details:     details,
	}
}

// redact hides the author's private notes from everyone but the author and
// admins.
func redact(caller *model.Identity, r *model.MedicalRecord) {
	if caller.Role == model.RoleAdmin || caller.ID == r.DoctorID {
		return
	}
	r.PrivateNotes = ""
}

func sanitizeUpdate(u *model.RecordUpdate) {
	for _, f := range []*string{u.ChiefComplaint, u.PresentIllness, u.ClinicalNotes, u.PrivateNotes} {
		if f != nil {
			*f = model.Sanitize(*f)
		}
	}
}
