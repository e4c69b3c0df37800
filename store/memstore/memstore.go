// Package memstore is an in-process implementation of the identity,
// patient and record stores. A single mutex serializes writes, which gives
// the same per-document atomicity the MongoDB store gets from
// FindOneAndUpdate. It backs tests and single-instance development runs.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/medvault/model"
)

// Store holds every collection in maps keyed by id.
type Store struct {
	mu         sync.RWMutex
	identities map[string]*model.Identity
	patients   map[string]*model.Patient
	records    map[string]*model.MedicalRecord
}

// New returns an empty store.
func New() *Store {
	return &Store{
		identities: make(map[string]*model.Identity),
		patients:   make(map[string]*model.Patient),
		records:    make(map[string]*model.MedicalRecord),
	}
}

/* ==== IDENTITIES ==== */

func (s *Store) CreateIdentity(_ context.Context, identity *model.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := model.NormalizeEmail(identity.Email)
	for _, existing := range s.identities {
		if existing.Email == email {
			return model.ErrDuplicateEmail
		}
		if identity.Doctor != nil && existing.Doctor != nil &&
			identity.Doctor.LicenseNumber != "" &&
			existing.Doctor.LicenseNumber == identity.Doctor.LicenseNumber {
			return model.ErrDuplicateLicense
		}
	}

	cp := cloneIdentity(identity)
	cp.Email = email
	s.identities[cp.ID] = cp
	return nil
}

func (s *Store) IdentityByID(_ context.Context, id string) (*model.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.identities[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return cloneIdentity(identity), nil
}

func (s *Store) IdentityByEmail(_ context.Context, email string) (*model.Identity, error) {
	email = model.NormalizeEmail(email)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, identity := range s.identities {
		if identity.Email == email {
			return cloneIdentity(identity), nil
		}
	}
	return nil, model.ErrNotFound
}

func (s *Store) ListIdentities(_ context.Context, f model.IdentityFilter) ([]model.Identity, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []model.Identity
	for _, identity := range s.identities {
		if f.Role != "" && identity.Role != f.Role {
			continue
		}
		if f.Active != nil && identity.Active != *f.Active {
			continue
		}
		matched = append(matched, *cloneIdentity(identity))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return paginate(matched, f.Page, f.Limit), int64(len(matched)), nil
}

func (s *Store) UpdateIdentity(_ context.Context, id string, u model.IdentityUpdate, now time.Time) (*model.Identity, error) {
	return s.mutateIdentity(id, func(identity *model.Identity) {
		if u.Name != nil {
			identity.Name = *u.Name
		}
		if u.Phone != nil {
			identity.Phone = *u.Phone
		}
		if u.Active != nil {
			identity.Active = *u.Active
		}
		identity.UpdatedAt = now
	})
}

func (s *Store) IncrementFailedLogins(_ context.Context, id string, now time.Time, threshold int, lockFor time.Duration) (model.LockState, error) {
	identity, err := s.mutateIdentity(id, func(identity *model.Identity) {
		if identity.LockedUntil != nil && !identity.LockedUntil.After(now) {
			identity.FailedLogins = 1
			identity.LockedUntil = nil
			return
		}
		identity.FailedLogins++
		if identity.FailedLogins >= threshold && identity.LockedUntil == nil {
			until := now.Add(lockFor)
			identity.LockedUntil = &until
		}
	})
	if err != nil {
		return model.LockState{}, err
	}
	return model.LockState{FailedLogins: identity.FailedLogins, LockedUntil: identity.LockedUntil}, nil
}

func (s *Store) ResetFailedLogins(_ context.Context, id string, now time.Time) error {
	_, err := s.mutateIdentity(id, func(identity *model.Identity) {
		identity.FailedLogins = 0
		identity.LockedUntil = nil
		identity.LastLoginAt = &now
	})
	return err
}

func (s *Store) SetPasswordHash(_ context.Context, id, hash string, revoke bool, now time.Time) (*model.Identity, error) {
	return s.mutateIdentity(id, func(identity *model.Identity) {
		identity.PasswordHash = hash
		identity.PasswordChangedAt = &now
		identity.UpdatedAt = now
		if revoke {
			identity.TokenVersion++
		}
	})
}

func (s *Store) BumpTokenVersion(_ context.Context, id string, now time.Time) (*model.Identity, error) {
	return s.mutateIdentity(id, func(identity *model.Identity) {
		identity.TokenVersion++
		identity.UpdatedAt = now
	})
}

func (s *Store) SetResetSecret(_ context.Context, id, hash string, expires time.Time) error {
	_, err := s.mutateIdentity(id, func(identity *model.Identity) {
		identity.ResetTokenHash = hash
		identity.ResetExpiresAt = &expires
	})
	return err
}

func (s *Store) ConsumeResetSecret(_ context.Context, hash, newPasswordHash string, now time.Time) (*model.Identity, error) {
	return s.consume(hash, func(identity *model.Identity) bool {
		return identity.ResetTokenHash == hash && identity.ResetExpiresAt != nil && identity.ResetExpiresAt.After(now)
	}, func(identity *model.Identity) {
		identity.PasswordHash = newPasswordHash
		identity.PasswordChangedAt = &now
		identity.ResetTokenHash = ""
		identity.ResetExpiresAt = nil
		identity.TokenVersion++
		identity.UpdatedAt = now
	})
}

func (s *Store) SetVerifySecret(_ context.Context, id, hash string, expires time.Time) error {
	_, err := s.mutateIdentity(id, func(identity *model.Identity) {
		identity.VerifyTokenHash = hash
		identity.VerifyExpiresAt = &expires
	})
	return err
}

func (s *Store) ConsumeVerifySecret(_ context.Context, hash string, now time.Time) (*model.Identity, error) {
	return s.consume(hash, func(identity *model.Identity) bool {
		return identity.VerifyTokenHash == hash && identity.VerifyExpiresAt != nil && identity.VerifyExpiresAt.After(now)
	}, func(identity *model.Identity) {
		identity.EmailVerified = true
		identity.VerifyTokenHash = ""
		identity.VerifyExpiresAt = nil
		identity.UpdatedAt = now
	})
}

func (s *Store) consume(hash string, match func(*model.Identity) bool, apply func(*model.Identity)) (*model.Identity, error) {
	if hash == "" {
		return nil, model.ErrSecretNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, identity := range s.identities {
		if match(identity) {
			apply(identity)
			return cloneIdentity(identity), nil
		}
	}
	return nil, model.ErrSecretNotFound
}

func (s *Store) mutateIdentity(id string, fn func(*model.Identity)) (*model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.identities[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	fn(identity)
	return cloneIdentity(identity), nil
}

/* ==== PATIENTS ==== */

func (s *Store) CreatePatient(_ context.Context, p *model.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.patients {
		if existing.UserID == p.UserID {
			return model.ErrDuplicatePatient
		}
	}
	s.patients[p.ID] = clonePatient(p)
	return nil
}

func (s *Store) PatientByID(_ context.Context, id string) (*model.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return clonePatient(p), nil
}

func (s *Store) PatientByUserID(_ context.Context, userID string) (*model.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.patients {
		if p.UserID == userID {
			return clonePatient(p), nil
		}
	}
	return nil, model.ErrNotFound
}

func (s *Store) ListPatients(_ context.Context, f model.PatientFilter) ([]model.Patient, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []model.Patient
	for _, p := range s.patients {
		if f.DoctorID != "" && !p.IsAssigned(f.DoctorID) {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.RiskLevel != "" && p.RiskLevel != f.RiskLevel {
			continue
		}
		matched = append(matched, *clonePatient(p))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return paginate(matched, f.Page, f.Limit), int64(len(matched)), nil
}

// SavePatient replaces the chart when p.Revision matches the stored one.
func (s *Store) SavePatient(_ context.Context, p *model.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.patients[p.ID]
	if !ok {
		return model.ErrNotFound
	}
	if existing.Revision != p.Revision {
		return model.ErrConflict
	}
	p.Revision++
	s.patients[p.ID] = clonePatient(p)
	return nil
}

/* ==== RECORDS ==== */

func (s *Store) CreateRecord(_ context.Context, r *model.MedicalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.ID] = cloneRecord(r)
	return nil
}

func (s *Store) RecordByID(_ context.Context, id string) (*model.MedicalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok || r.Deleted {
		return nil, model.ErrNotFound
	}
	return cloneRecord(r), nil
}

func (s *Store) ListRecords(_ context.Context, f model.RecordFilter) ([]model.MedicalRecord, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := strings.ToLower(strings.TrimSpace(f.Query))
	var matched []model.MedicalRecord
	for _, r := range s.records {
		if r.Deleted {
			continue
		}
		if f.PatientID != "" && r.PatientID != f.PatientID {
			continue
		}
		if f.VisibleTo != "" && r.DoctorID != f.VisibleTo && !sharedWith(r, f.VisibleTo) {
			continue
		}
		if query != "" && !matchesText(r, query) {
			continue
		}
		matched = append(matched, *cloneRecord(r))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].VisitDate.After(matched[j].VisitDate) })
	return paginate(matched, f.Page, f.Limit), int64(len(matched)), nil
}

// SaveRecord replaces a live record when r.Revision matches the stored one.
func (s *Store) SaveRecord(_ context.Context, r *model.MedicalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[r.ID]
	if !ok || existing.Deleted {
		return model.ErrNotFound
	}
	if existing.Revision != r.Revision {
		return model.ErrConflict
	}
	r.Revision++
	s.records[r.ID] = cloneRecord(r)
	return nil
}

func (s *Store) AppendAccess(_ context.Context, id string, entry model.AccessEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok || r.Deleted {
		return model.ErrNotFound
	}
	r.AccessLog = append(r.AccessLog, entry)
	r.Revision++
	return nil
}

func sharedWith(r *model.MedicalRecord, userID string) bool {
	for _, g := range r.SharedWith {
		if g.UserID == userID {
			return true
		}
	}
	return false
}

func matchesText(r *model.MedicalRecord, query string) bool {
	haystack := []string{r.ChiefComplaint, r.PresentIllness, r.ClinicalNotes}
	for _, d := range r.Diagnoses {
		haystack = append(haystack, d.Description)
	}
	for _, h := range haystack {
		if strings.Contains(strings.ToLower(h), query) {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, page, limit int) []T {
	page, limit = model.Normalize(page, limit, 0)
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := min(start+limit, len(items))
	return items[start:end]
}
