package medvault

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/medvault/internal/audit"
	"github.com/MrEthical07/medvault/model"
	"github.com/MrEthical07/medvault/permission"
)

const maxPageSize = 100

// DetailsUpdate is the self-service profile change.
type DetailsUpdate struct {
	Name  *string
	Phone *string
}

// UpdateDetails changes the caller's own name and phone.
func (e *Engine) UpdateDetails(ctx context.Context, identityID string, u DetailsUpdate) (*model.Identity, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	update, err := sanitizeUpdate(model.IdentityUpdate{Name: u.Name, Phone: u.Phone})
	if err != nil {
		return nil, err
	}
	identity, err := e.identities.UpdateIdentity(ctx, identityID, update, e.now())
	if err != nil {
		return nil, identityErr(err)
	}
	e.emit(ctx, audit.ActionUserUpdate, identityID, identityID, true, nil, nil)
	return identity, nil
}

// ListIdentities is the admin directory.
func (e *Engine) ListIdentities(ctx context.Context, actor *model.Identity, f model.IdentityFilter) (model.Page[model.Identity], error) {
	if err := e.Can(actor, permission.UserManage).Err(); err != nil {
		return model.Page[model.Identity]{}, err
	}
	return e.listIdentities(ctx, f)
}

// GetIdentity returns one identity to an admin.
func (e *Engine) GetIdentity(ctx context.Context, actor *model.Identity, id string) (*model.Identity, error) {
	if err := e.Can(actor, permission.UserManage).Err(); err != nil {
		return nil, err
	}
	identity, err := e.identities.IdentityByID(ctx, id)
	if err != nil {
		return nil, identityErr(err)
	}
	return identity, nil
}

// UpdateIdentity applies an admin edit. Roles cannot be changed.
func (e *Engine) UpdateIdentity(ctx context.Context, actor *model.Identity, id string, u model.IdentityUpdate) (*model.Identity, error) {
	if err := e.Can(actor, permission.UserManage).Err(); err != nil {
		return nil, err
	}
	if u.Active != nil && !*u.Active && id == actor.ID {
		return nil, model.Invalid("admins cannot deactivate themselves")
	}
	update, err := sanitizeUpdate(u)
	if err != nil {
		return nil, err
	}
	identity, err := e.identities.UpdateIdentity(ctx, id, update, e.now())
	if err != nil {
		return nil, identityErr(err)
	}
	e.emit(ctx, audit.ActionUserUpdate, actor.ID, id, true, nil, nil)
	return identity, nil
}

// DeactivateIdentity is the soft delete: the document stays, Active turns
// false and every token stops resolving.
func (e *Engine) DeactivateIdentity(ctx context.Context, actor *model.Identity, id string) error {
	if err := e.Can(actor, permission.UserManage).Err(); err != nil {
		return err
	}
	if id == actor.ID {
		return model.Invalid("admins cannot deactivate themselves")
	}
	inactive := false
	if _, err := e.identities.UpdateIdentity(ctx, id, model.IdentityUpdate{Active: &inactive}, e.now()); err != nil {
		return identityErr(err)
	}
	e.metrics.Inc(MetricAccountDeactivated)
	e.emit(ctx, audit.ActionUserDeactivate, actor.ID, id, true, nil, nil)
	return nil
}

// ListDoctors lists active doctors to any signed-in caller.
func (e *Engine) ListDoctors(ctx context.Context, page, limit int) (model.Page[model.Identity], error) {
	active := true
	return e.listIdentities(ctx, model.IdentityFilter{Role: model.RoleDoctor, Active: &active, Page: page, Limit: limit})
}

// ListPatientIdentities lists active patient accounts to doctors and admins.
func (e *Engine) ListPatientIdentities(ctx context.Context, actor *model.Identity, page, limit int) (model.Page[model.Identity], error) {
	if err := e.Can(actor, permission.UserDirectory).Err(); err != nil {
		return model.Page[model.Identity]{}, err
	}
	active := true
	return e.listIdentities(ctx, model.IdentityFilter{Role: model.RolePatient, Active: &active, Page: page, Limit: limit})
}

func (e *Engine) listIdentities(ctx context.Context, f model.IdentityFilter) (model.Page[model.Identity], error) {
	f.Page, f.Limit = model.Normalize(f.Page, f.Limit, maxPageSize)
	items, total, err := e.identities.ListIdentities(ctx, f)
	if err != nil {
		return model.Page[model.Identity]{}, fmt.Errorf("list identities: %w", err)
	}
	return model.NewPage(items, total, f.Page, f.Limit), nil
}

func sanitizeUpdate(u model.IdentityUpdate) (model.IdentityUpdate, error) {
	var fields []string
	if u.Name != nil {
		name := model.Sanitize(*u.Name)
		if msg := model.ValidateName(name); msg != "" {
			fields = append(fields, msg)
		}
		u.Name = &name
	}
	if u.Phone != nil {
		phone := model.Sanitize(*u.Phone)
		if msg := model.ValidatePhone(phone); msg != "" {
			fields = append(fields, msg)
		}
		u.Phone = &phone
	}
	return u, model.Invalid(fields...)
}

func identityErr(err error) error {
	if errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrIdentityNotFound, model.ErrNotFound)
	}
	return fmt.Errorf("identity store: %w", err)
}
