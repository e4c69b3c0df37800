package medvault

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/medvault/model"
)

func TestAccounts_AdminDirectory(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()
	admin := h.seedAdmin(t)
	doctor := h.register(t, doctorRegistration("d@x.com")).Identity
	h.register(t, patientRegistration("p@x.com"))

	page, err := h.engine.ListIdentities(ctx, admin, model.IdentityFilter{Role: model.RoleDoctor})
	if err != nil {
		t.Fatalf("ListIdentities failed: %v", err)
	}
	if page.Total != 1 || page.Items[0].ID != doctor.ID || page.Page != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
	if _, err := h.engine.ListIdentities(ctx, doctor, model.IdentityFilter{}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("doctor must not list users, got %v", err)
	}

	if _, err := h.engine.GetIdentity(ctx, admin, "missing"); !errors.Is(err, ErrIdentityNotFound) {
		t.Fatalf("expected ErrIdentityNotFound, got %v", err)
	}
}

func TestAccounts_DeactivateIsSoftDelete(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()
	admin := h.seedAdmin(t)
	res := h.register(t, doctorRegistration("d@x.com"))

	if err := h.engine.DeactivateIdentity(ctx, admin, admin.ID); !errors.Is(err, ErrValidation) {
		t.Fatalf("self deactivation: expected ErrValidation, got %v", err)
	}
	if err := h.engine.DeactivateIdentity(ctx, admin, res.Identity.ID); err != nil {
		t.Fatalf("DeactivateIdentity failed: %v", err)
	}
	stored, err := h.engine.GetIdentity(ctx, admin, res.Identity.ID)
	if err != nil {
		t.Fatalf("deactivated identity must remain stored: %v", err)
	}
	if stored.Active {
		t.Fatal("identity should be inactive")
	}
	if _, err := h.engine.Resolve(ctx, res.Token.Value); !errors.Is(err, ErrAccountDeactivated) {
		t.Fatalf("expected ErrAccountDeactivated, got %v", err)
	}

	doctors, _ := h.engine.ListDoctors(ctx, 1, 10)
	if doctors.Total != 0 {
		t.Fatalf("inactive doctors must not be listed, got %d", doctors.Total)
	}
}

func TestAccounts_UpdateDetailsValidates(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()
	res := h.register(t, doctorRegistration("d@x.com"))

	bad := "call me"
	if _, err := h.engine.UpdateDetails(ctx, res.Identity.ID, DetailsUpdate{Phone: &bad}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	name, phone := "Dana Renamed", "+1 555-0100"
	updated, err := h.engine.UpdateDetails(ctx, res.Identity.ID, DetailsUpdate{Name: &name, Phone: &phone})
	if err != nil {
		t.Fatalf("UpdateDetails failed: %v", err)
	}
	if updated.Name != name || updated.Phone != phone || updated.Role != model.RoleDoctor {
		t.Fatalf("unexpected identity %+v", updated)
	}
}

func TestAccounts_PatientDirectoryScope(t *testing.T) {
	h := newHarness(t, testConfig())
	ctx := context.Background()
	doctor := h.register(t, doctorRegistration("d@x.com")).Identity
	patient := h.register(t, patientRegistration("p@x.com")).Identity

	page, err := h.engine.ListPatientIdentities(ctx, doctor, 1, 10)
	if err != nil || page.Total != 1 {
		t.Fatalf("doctor should list patients: %+v %v", page, err)
	}
	if _, err := h.engine.ListPatientIdentities(ctx, patient, 1, 10); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
