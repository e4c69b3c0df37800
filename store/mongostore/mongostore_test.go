package mongostore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/medvault/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestLockoutPipelineShape(t *testing.T) {
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	p := lockoutPipeline(now, 5, 2*time.Hour)
	if len(p) != 1 || p[0][0].Key != "$set" {
		t.Fatalf("expected a single $set stage, got %v", p)
	}
	set, ok := p[0][0].Value.(bson.D)
	if !ok || len(set) != 2 || set[0].Key != "failedLogins" || set[1].Key != "lockedUntil" {
		t.Fatalf("unexpected $set fields: %v", p[0][0].Value)
	}
	if _, err := bson.Marshal(bson.D{{Key: "pipeline", Value: p}}); err != nil {
		t.Fatalf("pipeline must marshal: %v", err)
	}
}

func TestRecordFilter(t *testing.T) {
	f := recordFilter(model.RecordFilter{PatientID: "p1", VisibleTo: "doc-a", Query: " chest pain "})
	if f["deleted"] != false || f["patientId"] != "p1" {
		t.Fatalf("unexpected filter %v", f)
	}
	if _, ok := f["$or"]; !ok {
		t.Fatal("VisibleTo must restrict to authored or shared records")
	}
	if text, _ := f["$text"].(bson.M); text["$search"] != "chest pain" {
		t.Fatalf("unexpected text filter %v", f["$text"])
	}
}

func TestIdentityAndPatientFilters(t *testing.T) {
	active := true
	f := identityFilter(model.IdentityFilter{Role: model.RoleDoctor, Active: &active})
	if f["role"] != model.RoleDoctor || f["active"] != true {
		t.Fatalf("unexpected identity filter %v", f)
	}
	pf := patientFilter(model.PatientFilter{DoctorID: "doc-a", RiskLevel: model.RiskHigh})
	if pf["assignedDoctors.doctorId"] != "doc-a" || pf["riskLevel"] != model.RiskHigh {
		t.Fatalf("unexpected patient filter %v", pf)
	}
	if _, ok := pf["status"]; ok {
		t.Fatal("empty status must not filter")
	}
}

func TestDuplicateIdentityMapping(t *testing.T) {
	emailDup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key error index: email_1"}}}
	if err := duplicateIdentity(emailDup); !errors.Is(err, model.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	licenseDup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key error index: doctor.licenseNumber_1"}}}
	if err := duplicateIdentity(licenseDup); !errors.Is(err, model.ErrDuplicateLicense) {
		t.Fatalf("expected ErrDuplicateLicense, got %v", err)
	}
	other := errors.New("boom")
	if err := duplicateIdentity(other); err != other {
		t.Fatalf("non-duplicate errors must pass through, got %v", err)
	}
}

func TestMockedIdentityQueries(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("by email", func(mt *mtest.T) {
		s := &Store{Identities: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "medvault.users", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "u1"},
			{Key: "email", Value: "d@x.com"},
			{Key: "role", Value: "doctor"},
			{Key: "active", Value: true},
		}))
		identity, err := s.IdentityByEmail(context.Background(), " D@X.com")
		if err != nil {
			mt.Fatalf("IdentityByEmail failed: %v", err)
		}
		if identity.ID != "u1" || identity.Role != model.RoleDoctor {
			mt.Fatalf("unexpected identity %+v", identity)
		}
	})

	mt.Run("missing", func(mt *mtest.T) {
		s := &Store{Identities: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "medvault.users", mtest.FirstBatch))
		if _, err := s.IdentityByID(context.Background(), "nope"); !errors.Is(err, model.ErrNotFound) {
			mt.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	mt.Run("consume without match", func(mt *mtest.T) {
		s := &Store{Identities: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))
		_, err := s.ConsumeResetSecret(context.Background(), "hash", "new", time.Now())
		if !errors.Is(err, model.ErrSecretNotFound) {
			mt.Fatalf("expected ErrSecretNotFound, got %v", err)
		}
	})
}

func TestMockedGuardedSaves(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("record saved", func(mt *mtest.T) {
		s := &Store{Records: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		r := &model.MedicalRecord{ID: "r1", Revision: 3}
		if err := s.SaveRecord(context.Background(), r); err != nil {
			mt.Fatalf("SaveRecord failed: %v", err)
		}
		if r.Revision != 4 {
			mt.Fatalf("expected revision 4, got %d", r.Revision)
		}
	})

	mt.Run("record written since load", func(mt *mtest.T) {
		s := &Store{Records: mt.Coll}
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, "medvault.medical_records", mtest.FirstBatch, bson.D{{Key: "n", Value: 1}}),
		)
		r := &model.MedicalRecord{ID: "r1", Revision: 3}
		if err := s.SaveRecord(context.Background(), r); !errors.Is(err, model.ErrConflict) {
			mt.Fatalf("expected ErrConflict, got %v", err)
		}
		if r.Revision != 3 {
			mt.Fatalf("a rejected save must keep the loaded revision, got %d", r.Revision)
		}
	})

	mt.Run("patient gone", func(mt *mtest.T) {
		s := &Store{Patients: mt.Coll}
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, "medvault.patients", mtest.FirstBatch),
		)
		if err := s.SavePatient(context.Background(), &model.Patient{ID: "p1"}); !errors.Is(err, model.ErrNotFound) {
			mt.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}
