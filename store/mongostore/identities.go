package mongostore

import (
	"context"
	"strings"
	"time"

	"github.com/MrEthical07/medvault/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var returnAfter = options.FindOneAndUpdate().SetReturnDocument(options.After)

func (s *Store) CreateIdentity(ctx context.Context, identity *model.Identity) error {
	doc := *identity
	doc.Email = model.NormalizeEmail(identity.Email)
	if _, err := s.Identities.InsertOne(ctx, doc); err != nil {
		return duplicateIdentity(err)
	}
	return nil
}

func duplicateIdentity(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}
	if strings.Contains(err.Error(), "licenseNumber") {
		return model.ErrDuplicateLicense
	}
	return model.ErrDuplicateEmail
}

func (s *Store) IdentityByID(ctx context.Context, id string) (*model.Identity, error) {
	return s.findIdentity(ctx, bson.M{"_id": id})
}

func (s *Store) IdentityByEmail(ctx context.Context, email string) (*model.Identity, error) {
	return s.findIdentity(ctx, bson.M{"email": model.NormalizeEmail(email)})
}

func (s *Store) findIdentity(ctx context.Context, filter bson.M) (*model.Identity, error) {
	var identity model.Identity
	if err := s.Identities.FindOne(ctx, filter).Decode(&identity); err != nil {
		return nil, notFound(err, model.ErrNotFound)
	}
	return &identity, nil
}

func identityFilter(f model.IdentityFilter) bson.M {
	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	if f.Active != nil {
		filter["active"] = *f.Active
	}
	return filter
}

func (s *Store) ListIdentities(ctx context.Context, f model.IdentityFilter) ([]model.Identity, int64, error) {
	filter := identityFilter(f)
	total, err := s.Identities.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cursor, err := s.Identities.Find(ctx, filter, pageOptions(f.Page, f.Limit, bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, 0, err
	}
	var items []model.Identity
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Store) UpdateIdentity(ctx context.Context, id string, u model.IdentityUpdate, now time.Time) (*model.Identity, error) {
	set := bson.M{"updatedAt": now}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Phone != nil {
		set["phone"] = *u.Phone
	}
	if u.Active != nil {
		set["active"] = *u.Active
	}
	return s.updateIdentity(ctx, bson.M{"_id": id}, bson.M{"$set": set}, model.ErrNotFound)
}

// lockoutPipeline is the aggregation-pipeline update behind
// IncrementFailedLogins. Field references inside one $set stage see the
// pre-update document, so both fields are computed from the same snapshot.
func lockoutPipeline(now time.Time, threshold int, lockFor time.Duration) mongo.Pipeline {
	lockSet := bson.M{"$ne": bson.A{bson.M{"$ifNull": bson.A{"$lockedUntil", nil}}, nil}}
	expired := bson.M{"$and": bson.A{lockSet, bson.M{"$lte": bson.A{"$lockedUntil", now}}}}
	next := bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$failedLogins", 0}}, 1}}
	reachLock := bson.M{"$and": bson.A{
		bson.M{"$gte": bson.A{next, threshold}},
		bson.M{"$not": bson.A{lockSet}},
	}}

	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "failedLogins", Value: bson.M{"$cond": bson.A{expired, 1, next}}},
			{Key: "lockedUntil", Value: bson.M{"$cond": bson.A{
				expired,
				"$$REMOVE",
				bson.M{"$cond": bson.A{reachLock, now.Add(lockFor), "$lockedUntil"}},
			}}},
		}}},
	}
}

func (s *Store) IncrementFailedLogins(ctx context.Context, id string, now time.Time, threshold int, lockFor time.Duration) (model.LockState, error) {
	identity, err := s.updateIdentity(ctx, bson.M{"_id": id}, lockoutPipeline(now, threshold, lockFor), model.ErrNotFound)
	if err != nil {
		return model.LockState{}, err
	}
	return model.LockState{FailedLogins: identity.FailedLogins, LockedUntil: identity.LockedUntil}, nil
}

func (s *Store) ResetFailedLogins(ctx context.Context, id string, now time.Time) error {
	_, err := s.Identities.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":   bson.M{"failedLogins": 0, "lastLoginAt": now},
		"$unset": bson.M{"lockedUntil": ""},
	})
	return err
}

func (s *Store) SetPasswordHash(ctx context.Context, id, hash string, revoke bool, now time.Time) (*model.Identity, error) {
	update := bson.M{"$set": bson.M{"passwordHash": hash, "passwordChangedAt": now, "updatedAt": now}}
	if revoke {
		update["$inc"] = bson.M{"tokenVersion": 1}
	}
	return s.updateIdentity(ctx, bson.M{"_id": id}, update, model.ErrNotFound)
}

func (s *Store) BumpTokenVersion(ctx context.Context, id string, now time.Time) (*model.Identity, error) {
	return s.updateIdentity(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"updatedAt": now},
		"$inc": bson.M{"tokenVersion": 1},
	}, model.ErrNotFound)
}

func (s *Store) SetResetSecret(ctx context.Context, id, hash string, expires time.Time) error {
	return s.setSecret(ctx, id, bson.M{"resetTokenHash": hash, "resetExpiresAt": expires})
}

func (s *Store) SetVerifySecret(ctx context.Context, id, hash string, expires time.Time) error {
	return s.setSecret(ctx, id, bson.M{"verifyTokenHash": hash, "verifyExpiresAt": expires})
}

func (s *Store) setSecret(ctx context.Context, id string, set bson.M) error {
	res, err := s.Identities.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

// ConsumeResetSecret swaps the password hash and clears the reset fields in
// one conditional update, so only one of two concurrent consumers matches.
func (s *Store) ConsumeResetSecret(ctx context.Context, hash, newPasswordHash string, now time.Time) (*model.Identity, error) {
	if hash == "" {
		return nil, model.ErrSecretNotFound
	}
	return s.updateIdentity(ctx,
		bson.M{"resetTokenHash": hash, "resetExpiresAt": bson.M{"$gt": now}},
		bson.M{
			"$set":   bson.M{"passwordHash": newPasswordHash, "passwordChangedAt": now, "updatedAt": now},
			"$unset": bson.M{"resetTokenHash": "", "resetExpiresAt": ""},
			"$inc":   bson.M{"tokenVersion": 1},
		},
		model.ErrSecretNotFound,
	)
}

func (s *Store) ConsumeVerifySecret(ctx context.Context, hash string, now time.Time) (*model.Identity, error) {
	if hash == "" {
		return nil, model.ErrSecretNotFound
	}
	return s.updateIdentity(ctx,
		bson.M{"verifyTokenHash": hash, "verifyExpiresAt": bson.M{"$gt": now}},
		bson.M{
			"$set":   bson.M{"emailVerified": true, "updatedAt": now},
			"$unset": bson.M{"verifyTokenHash": "", "verifyExpiresAt": ""},
		},
		model.ErrSecretNotFound,
	)
}

func (s *Store) updateIdentity(ctx context.Context, filter, update any, miss error) (*model.Identity, error) {
	var identity model.Identity
	if err := s.Identities.FindOneAndUpdate(ctx, filter, update, returnAfter).Decode(&identity); err != nil {
		return nil, notFound(err, miss)
	}
	return &identity, nil
}
