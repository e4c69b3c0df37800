package access

import (
	"errors"
	"time"

	"github.com/MrEthical07/medvault/model"
	"github.com/MrEthical07/medvault/permission"
)

// ErrForbidden matches every *DeniedError.
var ErrForbidden = errors.New("forbidden")

// Reason explains a denial.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonInsufficientRole Reason = "insufficient_role"
	ReasonNotOwner         Reason = "not_owner"
	ReasonNotAssigned      Reason = "not_assigned"
	ReasonNotShared        Reason = "not_shared"
)

// Action is an operation on a patient chart or a medical record.
type Action string

const (
	Read     Action = "read"
	Update   Action = "update"
	Delete   Action = "delete"
	Share    Action = "share"
	Attach   Action = "attach"
	Create   Action = "create"
	Assign   Action = "assign"
	Clinical Action = "clinical"
)

var patientPerms = map[Action]string{
	Read:     permission.PatientRead,
	Update:   permission.PatientUpdate,
	Assign:   permission.PatientAssign,
	Clinical: permission.PatientClinical,
}

var recordPerms = map[Action]string{
	Read:   permission.RecordRead,
	Create: permission.RecordCreate,
	Update: permission.RecordUpdate,
	Delete: permission.RecordDelete,
	Share:  permission.RecordShare,
	Attach: permission.RecordAttach,
}

// Actor is the resolved caller.
type Actor struct {
	ID   string
	Role model.Role
}

// Decision is the outcome of an evaluation.
type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision        { return Decision{Allowed: true} }
func deny(r Reason) Decision { return Decision{Reason: r} }

// Err returns nil for an allowed decision and a *DeniedError otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{Reason: d.Reason}
}

// DeniedError carries the denial reason through error returns.
type DeniedError struct {
	Reason Reason
}

func (e *DeniedError) Error() string {
	return "forbidden: " + string(e.Reason)
}

func (e *DeniedError) Is(target error) bool {
	return target == ErrForbidden
}

// Evaluator combines the static role masks with the ownership, assignment
// and sharing relationships. It performs no I/O.
type Evaluator struct {
	roles *permission.RoleManager
}

// NewEvaluator returns an evaluator over roles.
func NewEvaluator(roles *permission.RoleManager) *Evaluator {
	return &Evaluator{roles: roles}
}

// Can checks only the static role permission.
func (e *Evaluator) Can(actor Actor, perm string) Decision {
	if actor.ID == "" || !e.roles.Allowed(string(actor.Role), perm) {
		return deny(ReasonInsufficientRole)
	}
	return allow()
}

// Patient decides action on chart p. Admins pass; patients must own the
// chart; doctors must be assigned to it.
func (e *Evaluator) Patient(actor Actor, action Action, p *model.Patient) Decision {
	perm, ok := patientPerms[action]
	if !ok {
		return deny(ReasonInsufficientRole)
	}
	if d := e.Can(actor, perm); !d.Allowed {
		return d
	}

	switch actor.Role {
	case model.RoleAdmin:
		return allow()
	case model.RolePatient:
		if p.IsOwnedBy(actor.ID) {
			return allow()
		}
		return deny(ReasonNotOwner)
	case model.RoleDoctor:
		if p.IsAssigned(actor.ID) {
			return allow()
		}
		return deny(ReasonNotAssigned)
	}
	return deny(ReasonInsufficientRole)
}

// CreateRecord decides whether actor may author a record on chart p. Only
// doctors assigned to the patient qualify.
func (e *Evaluator) CreateRecord(actor Actor, p *model.Patient) Decision {
	if d := e.Can(actor, permission.RecordCreate); !d.Allowed {
		return d
	}
	if actor.Role != model.RoleDoctor {
		return deny(ReasonInsufficientRole)
	}
	if !p.IsAssigned(actor.ID) {
		return deny(ReasonNotAssigned)
	}
	return allow()
}

// Record decides action on record r, whose chart is p. p may be nil when
// the chart is unknown, in which case no ownership or assignment applies.
// Expired share grants are ignored.
func (e *Evaluator) Record(actor Actor, action Action, r *model.MedicalRecord, p *model.Patient, now time.Time) Decision {
	perm, ok := recordPerms[action]
	if !ok || action == Create {
		return deny(ReasonInsufficientRole)
	}
	if d := e.Can(actor, perm); !d.Allowed {
		return d
	}

	switch actor.Role {
	case model.RoleAdmin:
		return allow()
	case model.RolePatient:
		if action == Read && p != nil && p.ID == r.PatientID && p.IsOwnedBy(actor.ID) {
			return allow()
		}
		return deny(ReasonNotOwner)
	case model.RoleDoctor:
		return e.doctorRecord(actor, action, r, p, now)
	}
	return deny(ReasonInsufficientRole)
}

func (e *Evaluator) doctorRecord(actor Actor, action Action, r *model.MedicalRecord, p *model.Patient, now time.Time) Decision {
	if r.DoctorID == actor.ID {
		return allow()
	}

	grant, shared := r.LiveGrant(actor.ID, now)
	switch action {
	case Read:
		if p != nil && p.ID == r.PatientID && p.IsAssigned(actor.ID) {
			return allow()
		}
		if shared && grant.Allows(model.ShareRead) {
			return allow()
		}
		return deny(ReasonNotShared)
	case Update, Delete, Attach:
		if shared && grant.Allows(model.ShareWrite) {
			return allow()
		}
		return deny(ReasonNotShared)
	case Share:
		return deny(ReasonNotOwner)
	}
	return deny(ReasonInsufficientRole)
}

// Attachment decides action on an attachment of record r. Reading follows
// the record read rules; adding or removing one needs Attach.
func (e *Evaluator) Attachment(actor Actor, action Action, r *model.MedicalRecord, p *model.Patient, now time.Time) Decision {
	switch action {
	case Read:
		return e.Record(actor, Read, r, p, now)
	case Attach, Delete:
		return e.Record(actor, Attach, r, p, now)
	}
	return deny(ReasonInsufficientRole)
}
