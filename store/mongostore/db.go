// Package mongostore persists identities, patient charts, medical records
// and the audit trail in MongoDB. Every state transition that must be atomic
// (lockout counters, one-time secret consumption, access-log appends) is a
// single-document update.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/medvault/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Config holds connection settings.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
	// AuditRetention expires audit_logs entries. Zero keeps them forever.
	AuditRetention time.Duration
}

// Store wraps the client and the collections it owns.
type Store struct {
	Client     *mongo.Client
	DB         *mongo.Database
	Identities *mongo.Collection
	Patients   *mongo.Collection
	Records    *mongo.Collection
	AuditLogs  *mongo.Collection

	logger *zap.Logger
}

// Connect dials MongoDB, pings it and ensures indexes.
func Connect(cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(cfg.Database)
	s := &Store{
		Client:     client,
		DB:         db,
		Identities: db.Collection("users"),
		Patients:   db.Collection("patients"),
		Records:    db.Collection("medical_records"),
		AuditLogs:  db.Collection("audit_logs"),
		logger:     logger,
	}

	if err := s.createIndexes(ctx, cfg.AuditRetention); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	logger.Info("connected to MongoDB", zap.String("database", cfg.Database))
	return s, nil
}

func (s *Store) createIndexes(ctx context.Context, auditRetention time.Duration) error {
	identityIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "doctor.licenseNumber", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{
				"doctor.licenseNumber": bson.M{"$type": "string"},
			}),
		},
		{
			Keys:    bson.D{{Key: "resetTokenHash", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "verifyTokenHash", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "role", Value: 1}, {Key: "active", Value: 1}},
		},
	}
	if _, err := s.Identities.Indexes().CreateMany(ctx, identityIndexes); err != nil {
		return fmt.Errorf("failed to create identity indexes: %w", err)
	}

	patientIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "assignedDoctors.doctorId", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "riskLevel", Value: 1}},
		},
	}
	if _, err := s.Patients.Indexes().CreateMany(ctx, patientIndexes); err != nil {
		return fmt.Errorf("failed to create patient indexes: %w", err)
	}

	recordIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "patientId", Value: 1}, {Key: "visitDate", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "doctorId", Value: 1}, {Key: "visitDate", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "sharedWith.userId", Value: 1}},
		},
		{
			Keys: bson.D{
				{Key: "chiefComplaint", Value: "text"},
				{Key: "presentIllness", Value: "text"},
				{Key: "clinicalNotes", Value: "text"},
				{Key: "diagnoses.description", Value: "text"},
			},
		},
	}
	if _, err := s.Records.Indexes().CreateMany(ctx, recordIndexes); err != nil {
		return fmt.Errorf("failed to create record indexes: %w", err)
	}

	auditIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "actorId", Value: 1}, {Key: "timestamp", Value: -1}},
		},
	}
	if auditRetention > 0 {
		auditIndexes = append(auditIndexes, mongo.IndexModel{
			Keys:    bson.D{{Key: "timestamp", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(auditRetention / time.Second)),
		})
	}
	if _, err := s.AuditLogs.Indexes().CreateMany(ctx, auditIndexes); err != nil {
		return fmt.Errorf("failed to create audit indexes: %w", err)
	}

	return nil
}

// Ping reports whether the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.Client.Disconnect(ctx)
}

func notFound(err error, miss error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return miss
	}
	return err
}

// missOrConflict resolves a guarded write that matched nothing: the
// document is either gone or was written since it was loaded.
func missOrConflict(ctx context.Context, coll *mongo.Collection, filter bson.M) error {
	n, err := coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return model.ErrConflict
}

func pageOptions(page, limit int, sort any) *options.FindOptions {
	page, limit = model.Normalize(page, limit, 0)
	return options.Find().
		SetSort(sort).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
}
