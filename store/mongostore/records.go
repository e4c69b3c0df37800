package mongostore

import (
	"context"
	"strings"

	"github.com/MrEthical07/medvault/model"
	"go.mongodb.org/mongo-driver/bson"
)

func (s *Store) CreateRecord(ctx context.Context, r *model.MedicalRecord) error {
	_, err := s.Records.InsertOne(ctx, r)
	return err
}

func (s *Store) RecordByID(ctx context.Context, id string) (*model.MedicalRecord, error) {
	var r model.MedicalRecord
	if err := s.Records.FindOne(ctx, bson.M{"_id": id, "deleted": false}).Decode(&r); err != nil {
		return nil, notFound(err, model.ErrNotFound)
	}
	return &r, nil
}

func recordFilter(f model.RecordFilter) bson.M {
	filter := bson.M{"deleted": false}
	if f.PatientID != "" {
		filter["patientId"] = f.PatientID
	}
	if f.VisibleTo != "" {
		filter["$or"] = bson.A{
			bson.M{"doctorId": f.VisibleTo},
			bson.M{"sharedWith.userId": f.VisibleTo},
		}
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		filter["$text"] = bson.M{"$search": q}
	}
	return filter
}

func (s *Store) ListRecords(ctx context.Context, f model.RecordFilter) ([]model.MedicalRecord, int64, error) {
	filter := recordFilter(f)
	total, err := s.Records.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cursor, err := s.Records.Find(ctx, filter, pageOptions(f.Page, f.Limit, bson.D{{Key: "visitDate", Value: -1}}))
	if err != nil {
		return nil, 0, err
	}
	var items []model.MedicalRecord
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// SaveRecord replaces a live record when the stored revision is still
// r.Revision. Soft-deleted records cannot be saved.
func (s *Store) SaveRecord(ctx context.Context, r *model.MedicalRecord) error {
	prev := r.Revision
	r.Revision = prev + 1
	res, err := s.Records.ReplaceOne(ctx, bson.M{"_id": r.ID, "deleted": false, "revision": prev}, r)
	if err != nil {
		r.Revision = prev
		return err
	}
	if res.MatchedCount == 0 {
		r.Revision = prev
		return missOrConflict(ctx, s.Records, bson.M{"_id": r.ID, "deleted": false})
	}
	return nil
}

// AppendAccess pushes one entry onto the record's access trail without
// rewriting the rest of the document. It bumps the revision so a save
// loaded before the append cannot drop the entry.
func (s *Store) AppendAccess(ctx context.Context, id string, entry model.AccessEntry) error {
	res, err := s.Records.UpdateOne(ctx,
		bson.M{"_id": id, "deleted": false},
		bson.M{"$push": bson.M{"accessLog": entry}, "$inc": bson.M{"revision": 1}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}
