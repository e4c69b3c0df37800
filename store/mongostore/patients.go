package mongostore

import (
	"context"

	"github.com/MrEthical07/medvault/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func (s *Store) CreatePatient(ctx context.Context, p *model.Patient) error {
	if _, err := s.Patients.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.ErrDuplicatePatient
		}
		return err
	}
	return nil
}

func (s *Store) PatientByID(ctx context.Context, id string) (*model.Patient, error) {
	return s.findPatient(ctx, bson.M{"_id": id})
}

func (s *Store) PatientByUserID(ctx context.Context, userID string) (*model.Patient, error) {
	return s.findPatient(ctx, bson.M{"userId": userID})
}

func (s *Store) findPatient(ctx context.Context, filter bson.M) (*model.Patient, error) {
	var p model.Patient
	if err := s.Patients.FindOne(ctx, filter).Decode(&p); err != nil {
		return nil, notFound(err, model.ErrNotFound)
	}
	return &p, nil
}

func patientFilter(f model.PatientFilter) bson.M {
	filter := bson.M{}
	if f.DoctorID != "" {
		filter["assignedDoctors.doctorId"] = f.DoctorID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.RiskLevel != "" {
		filter["riskLevel"] = f.RiskLevel
	}
	return filter
}

func (s *Store) ListPatients(ctx context.Context, f model.PatientFilter) ([]model.Patient, int64, error) {
	filter := patientFilter(f)
	total, err := s.Patients.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cursor, err := s.Patients.Find(ctx, filter, pageOptions(f.Page, f.Limit, bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, 0, err
	}
	var items []model.Patient
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// SavePatient replaces the stored chart with p when the stored revision is
// still p.Revision.
func (s *Store) SavePatient(ctx context.Context, p *model.Patient) error {
	prev := p.Revision
	p.Revision = prev + 1
	res, err := s.Patients.ReplaceOne(ctx, bson.M{"_id": p.ID, "revision": prev}, p)
	if err != nil {
		p.Revision = prev
		return err
	}
	if res.MatchedCount == 0 {
		p.Revision = prev
		return missOrConflict(ctx, s.Patients, bson.M{"_id": p.ID})
	}
	return nil
}
