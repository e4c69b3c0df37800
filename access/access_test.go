package access

import (
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/medvault/model"
	"github.com/MrEthical07/medvault/permission"
)

func newTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	rm, err := permission.Build(permission.All, permission.DefaultRoles)
	if err != nil {
		t.Fatalf("permission.Build failed: %v", err)
	}
	return NewEvaluator(rm)
}

var (
	admin    = Actor{ID: "admin-1", Role: model.RoleAdmin}
	doctorA  = Actor{ID: "doc-a", Role: model.RoleDoctor}
	doctorB  = Actor{ID: "doc-b", Role: model.RoleDoctor}
	doctorC  = Actor{ID: "doc-c", Role: model.RoleDoctor}
	patientX = Actor{ID: "pat-x", Role: model.RolePatient}
	patientY = Actor{ID: "pat-y", Role: model.RolePatient}
)

func fixture() (*model.Patient, *model.MedicalRecord) {
	p := &model.Patient{
		ID:              "chart-x",
		UserID:          patientX.ID,
		AssignedDoctors: []model.DoctorAssignment{{DoctorID: doctorA.ID, IsPrimary: true}},
	}
	r := &model.MedicalRecord{ID: "rec-1", PatientID: p.ID, DoctorID: doctorA.ID}
	return p, r
}

func TestPatient_Relationships(t *testing.T) {
	e := newTestEvaluator(t)
	p, _ := fixture()

	cases := []struct {
		name   string
		actor  Actor
		action Action
		want   Decision
	}{
		{"admin reads", admin, Read, allow()},
		{"admin assigns", admin, Assign, allow()},
		{"owner reads", patientX, Read, allow()},
		{"other patient", patientY, Read, deny(ReasonNotOwner)},
		{"patient cannot update", patientX, Update, deny(ReasonInsufficientRole)},
		{"assigned doctor reads", doctorA, Read, allow()},
		{"assigned doctor clinical", doctorA, Clinical, allow()},
		{"unassigned doctor", doctorB, Read, deny(ReasonNotAssigned)},
		{"doctor cannot assign", doctorA, Assign, deny(ReasonInsufficientRole)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := e.Patient(tc.actor, tc.action, p); got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestRecord_ReadRules(t *testing.T) {
	e := newTestEvaluator(t)
	p, r := fixture()
	now := time.Now()

	if d := e.Record(doctorA, Read, r, p, now); !d.Allowed {
		t.Fatalf("author should read, got %+v", d)
	}
	if d := e.Record(patientX, Read, r, p, now); !d.Allowed {
		t.Fatalf("owner should read, got %+v", d)
	}
	if d := e.Record(patientY, Read, r, p, now); d.Reason != ReasonNotOwner {
		t.Fatalf("other patient should be NotOwner, got %+v", d)
	}
	if d := e.Record(doctorB, Read, r, p, now); d.Reason != ReasonNotShared {
		t.Fatalf("unrelated doctor should be NotShared, got %+v", d)
	}

	p.Assign(model.DoctorAssignment{DoctorID: doctorC.ID})
	if d := e.Record(doctorC, Read, r, p, now); !d.Allowed {
		t.Fatalf("assigned doctor should read, got %+v", d)
	}
	if d := e.Record(doctorC, Update, r, p, now); d.Allowed {
		t.Fatal("assignment alone must not allow update")
	}
}

func TestRecord_ReadGrantCannotUpdate(t *testing.T) {
	e := newTestEvaluator(t)
	p, r := fixture()
	now := time.Now()
	r.Share(model.ShareGrant{UserID: doctorB.ID, Permissions: []model.SharePermission{model.ShareRead}, SharedAt: now})

	if d := e.Record(doctorB, Read, r, p, now); !d.Allowed {
		t.Fatalf("read grant should allow read, got %+v", d)
	}
	d := e.Record(doctorB, Update, r, p, now)
	if d.Allowed || d.Reason != ReasonNotShared {
		t.Fatalf("read grant must not allow update, got %+v", d)
	}
	if !errors.Is(d.Err(), ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", d.Err())
	}
}

func TestRecord_WriteGrantAllowsMutation(t *testing.T) {
	e := newTestEvaluator(t)
	p, r := fixture()
	now := time.Now()
	r.Share(model.ShareGrant{UserID: doctorB.ID, Permissions: []model.SharePermission{model.ShareWrite}, SharedAt: now})

	for _, action := range []Action{Read, Update, Delete, Attach} {
		if d := e.Record(doctorB, action, r, p, now); !d.Allowed {
			t.Fatalf("write grant should allow %s, got %+v", action, d)
		}
	}
	if d := e.Record(doctorB, Share, r, p, now); d.Allowed {
		t.Fatal("only the author or an admin may share")
	}
}

func TestRecord_ExpiredGrantDenied(t *testing.T) {
	e := newTestEvaluator(t)
	p, r := fixture()
	now := time.Now()
	expiry := now.Add(time.Hour)
	r.Share(model.ShareGrant{UserID: doctorB.ID, Permissions: []model.SharePermission{model.ShareWrite}, SharedAt: now, ExpiresAt: &expiry})

	if d := e.Record(doctorB, Read, r, p, now); !d.Allowed {
		t.Fatalf("live grant should allow read, got %+v", d)
	}
	later := expiry.Add(time.Second)
	if d := e.Record(doctorB, Read, r, p, later); d.Reason != ReasonNotShared {
		t.Fatalf("expired grant should be NotShared, got %+v", d)
	}
}

func TestRecord_AdminBypassesRelationships(t *testing.T) {
	e := newTestEvaluator(t)
	_, r := fixture()
	for _, action := range []Action{Read, Update, Delete, Share, Attach} {
		if d := e.Record(admin, action, r, nil, time.Now()); !d.Allowed {
			t.Fatalf("admin should be allowed %s, got %+v", action, d)
		}
	}
}

func TestRecord_PatientCannotMutate(t *testing.T) {
	e := newTestEvaluator(t)
	p, r := fixture()
	for _, action := range []Action{Update, Delete, Share, Attach} {
		d := e.Record(patientX, action, r, p, time.Now())
		if d.Reason != ReasonInsufficientRole {
			t.Fatalf("patient %s should be InsufficientRole, got %+v", action, d)
		}
	}
}

func TestCreateRecord(t *testing.T) {
	e := newTestEvaluator(t)
	p, _ := fixture()

	if d := e.CreateRecord(doctorA, p); !d.Allowed {
		t.Fatalf("assigned doctor should create, got %+v", d)
	}
	if d := e.CreateRecord(doctorB, p); d.Reason != ReasonNotAssigned {
		t.Fatalf("unassigned doctor should be NotAssigned, got %+v", d)
	}
	if d := e.CreateRecord(patientX, p); d.Reason != ReasonInsufficientRole {
		t.Fatalf("patient should be InsufficientRole, got %+v", d)
	}
}

func TestAttachment_FollowsRecordRules(t *testing.T) {
	e := newTestEvaluator(t)
	p, r := fixture()
	now := time.Now()
	r.SharedWith = []model.ShareGrant{{UserID: doctorB.ID, Permissions: []model.SharePermission{model.ShareRead}}}

	if d := e.Attachment(doctorB, Read, r, p, now); !d.Allowed {
		t.Fatalf("read grant should allow reading attachments: %+v", d)
	}
	if d := e.Attachment(doctorB, Delete, r, p, now); d.Allowed || d.Reason != ReasonNotShared {
		t.Fatalf("read grant must not remove attachments: %+v", d)
	}
	if d := e.Attachment(doctorA, Attach, r, p, now); !d.Allowed {
		t.Fatalf("author should attach: %+v", d)
	}
	if d := e.Attachment(patientX, Read, r, p, now); !d.Allowed {
		t.Fatalf("owner should read attachments: %+v", d)
	}
}
