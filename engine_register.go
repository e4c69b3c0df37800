package medvault

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/MrEthical07/medvault/internal/audit"
	"github.com/MrEthical07/medvault/internal/limiters"
	"github.com/MrEthical07/medvault/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Register validates reg, creates the identity and, for patients, their
// empty chart. The caller is signed in on success.
func (e *Engine) Register(ctx context.Context, reg model.Registration) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if err := e.throttle(ctx, limiters.ScopeAuth, ""); err != nil {
		return nil, err
	}

	reg = sanitizeRegistration(reg)
	if err := e.validateRegistration(reg); err != nil {
		return nil, err
	}

	hash, err := e.hashPassword(ctx, reg.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := e.now()
	identity := &model.Identity{
		ID:           uuid.NewString(),
		Name:         reg.Name,
		Email:        reg.Email,
		PasswordHash: hash,
		Phone:        reg.Phone,
		Role:         reg.Role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	switch reg.Role {
	case model.RoleDoctor:
		identity.Doctor = reg.Doctor
	case model.RolePatient:
		identity.Patient = reg.Patient
	}

	if err := e.identities.CreateIdentity(ctx, identity); err != nil {
		if errors.Is(err, model.ErrDuplicateEmail) || errors.Is(err, model.ErrDuplicateLicense) {
			e.metrics.Inc(MetricRegisterDuplicate)
			e.emit(ctx, audit.ActionRegister, "", "", false, err, map[string]string{"email": reg.Email})
			return nil, err
		}
		return nil, fmt.Errorf("create identity: %w", err)
	}

	if identity.Role == model.RolePatient && e.charts != nil {
		chart := &model.Patient{
			ID:        uuid.NewString(),
			UserID:    identity.ID,
			Status:    model.PatientActive,
			RiskLevel: model.RiskLow,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := e.charts.CreatePatient(ctx, chart); err != nil {
			return nil, fmt.Errorf("create patient chart: %w", err)
		}
	}

	if e.config.EmailVerification.IssueOnRegister {
		if err := e.issueVerification(ctx, identity); err != nil {
			e.logger.Warn("issue verification secret failed", zap.String("user_id", identity.ID), zap.Error(err))
		}
	}

	token, err := e.Issue(identity)
	if err != nil {
		return nil, err
	}
	e.metrics.Inc(MetricRegisterSuccess)
	e.emit(ctx, audit.ActionRegister, identity.ID, identity.ID, true, nil, map[string]string{"role": string(identity.Role)})
	return &LoginResult{Identity: identity, Token: token}, nil
}

func (e *Engine) validateRegistration(reg model.Registration) error {
	var fields []string
	var verr *ValidationError
	if err := model.ValidateRegistration(reg, e.now()); errors.As(err, &verr) {
		fields = append(fields, verr.Fields...)
	}
	if reg.Password != "" {
		fields = append(fields, passwordPolicy(reg.Password)...)
	}
	if reg.Role.Valid() && !slices.Contains(e.config.Account.AllowedRoles, reg.Role) {
		fields = append(fields, "role "+string(reg.Role)+" cannot self-register")
	}
	return model.Invalid(fields...)
}

func sanitizeRegistration(reg model.Registration) model.Registration {
	reg.Name = model.Sanitize(reg.Name)
	reg.Email = model.NormalizeEmail(reg.Email)
	reg.Phone = model.Sanitize(reg.Phone)
	if reg.Doctor != nil {
		d := *reg.Doctor
		d.Specialization = model.Sanitize(d.Specialization)
		d.LicenseNumber = model.Sanitize(d.LicenseNumber)
		reg.Doctor = &d
	}
	if reg.Patient != nil {
		p := *reg.Patient
		if p.EmergencyContact != nil {
			ec := *p.EmergencyContact
			ec.Name = model.Sanitize(ec.Name)
			ec.Relationship = model.Sanitize(ec.Relationship)
			p.EmergencyContact = &ec
		}
		reg.Patient = &p
	}
	return reg
}
