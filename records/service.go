// Package records implements the clinical side of MedVault: patient charts,
// doctor assignments and medical records. Every operation takes the resolved
// caller and asks the access evaluator before touching storage.
package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/medvault"
	"github.com/MrEthical07/medvault/access"
	"github.com/MrEthical07/medvault/internal/audit"
	"github.com/MrEthical07/medvault/model"
	"go.uber.org/zap"
)

const maxPageSize = 100

// maxSaveAttempts bounds how often a load-modify-save reruns after another
// write won the race.
const maxSaveAttempts = 3

// PatientStore persists patient charts.
type PatientStore interface {
	PatientByID(ctx context.Context, id string) (*model.Patient, error)
	PatientByUserID(ctx context.Context, userID string) (*model.Patient, error)
	ListPatients(ctx context.Context, f model.PatientFilter) ([]model.Patient, int64, error)
	SavePatient(ctx context.Context, p *model.Patient) error
}

// RecordStore persists medical records. RecordByID hides deleted records.
type RecordStore interface {
	CreateRecord(ctx context.Context, r *model.MedicalRecord) error
	RecordByID(ctx context.Context, id string) (*model.MedicalRecord, error)
	ListRecords(ctx context.Context, f model.RecordFilter) ([]model.MedicalRecord, int64, error)
	SaveRecord(ctx context.Context, r *model.MedicalRecord) error
	AppendAccess(ctx context.Context, id string, entry model.AccessEntry) error
}

// Directory resolves identities referenced by assignments and grants.
type Directory interface {
	IdentityByID(ctx context.Context, id string) (*model.Identity, error)
}

// Auditor receives clinical audit events. *medvault.Engine implements it.
type Auditor interface {
	RecordAudit(ctx context.Context, action audit.Action, actorID string, success bool, meta map[string]string)
}

// Deps wires a Service.
type Deps struct {
	Patients  PatientStore
	Records   RecordStore
	Directory Directory
	Evaluator *access.Evaluator
	Auditor   Auditor
	Logger    *zap.Logger
	Now       func() time.Time
}

// Service is safe for concurrent use.
type Service struct {
	patients  PatientStore
	records   RecordStore
	directory Directory
	evaluator *access.Evaluator
	auditor   Auditor
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(d Deps) (*Service, error) {
	if d.Patients == nil || d.Records == nil || d.Directory == nil || d.Evaluator == nil {
		return nil, errors.New("records: patients, records, directory and evaluator are required")
	}
	s := &Service{
		patients:  d.Patients,
		records:   d.Records,
		directory: d.Directory,
		evaluator: d.Evaluator,
		auditor:   d.Auditor,
		logger:    d.Logger,
		now:       d.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.Named("records")
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// check turns a denial into an error and audits it.
func (s *Service) check(ctx context.Context, actor *model.Identity, d access.Decision, target string) error {
	if d.Allowed {
		return nil
	}
	s.audit(ctx, audit.ActionAccessDenied, actor, false, map[string]string{"target": target, "reason": string(d.Reason)})
	return d.Err()
}

func (s *Service) audit(ctx context.Context, action audit.Action, actor *model.Identity, success bool, meta map[string]string) {
	if s.auditor == nil {
		return
	}
	s.auditor.RecordAudit(ctx, action, actor.ID, success, meta)
}

func (s *Service) loadPatient(ctx context.Context, id string) (*model.Patient, error) {
	p, err := s.patients.PatientByID(ctx, id)
	if err != nil {
		return nil, storeErr("load patient", err)
	}
	return p, nil
}

// loadRecord returns the record and its chart. A missing chart is tolerated
// so that orphaned records stay reachable by their author and admins.
func (s *Service) loadRecord(ctx context.Context, id string) (*model.MedicalRecord, *model.Patient, error) {
	r, err := s.records.RecordByID(ctx, id)
	if err != nil {
		return nil, nil, storeErr("load record", err)
	}
	p, err := s.patients.PatientByID(ctx, r.PatientID)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			return nil, nil, storeErr("load patient", err)
		}
		p = nil
	}
	return r, p, nil
}

// activeIdentity loads id and requires it to be an active account of role.
func (s *Service) activeIdentity(ctx context.Context, id string, role model.Role) (*model.Identity, error) {
	identity, err := s.directory.IdentityByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.Invalid(string(role) + " not found")
		}
		return nil, storeErr("load identity", err)
	}
	if identity.Role != role || !identity.Active {
		return nil, model.Invalid("user is not an active " + string(role))
	}
	return identity, nil
}

// retryConflict reruns fn, including its access check, while the save it
// ends with loses to a concurrent write.
func retryConflict[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	for attempt := 1; ; attempt++ {
		v, err := fn()
		if !errors.Is(err, model.ErrConflict) || attempt == maxSaveAttempts || ctx.Err() != nil {
			return v, err
		}
	}
}

func storeErr(op string, err error) error {
	if errors.Is(err, model.ErrNotFound) {
		return model.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func actor(identity *model.Identity) access.Actor {
	return medvault.Actor(identity)
}
