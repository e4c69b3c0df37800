package memstore

import (
	"slices"
	"time"

	"github.com/MrEthical07/medvault/model"
)

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneIdentity(in *model.Identity) *model.Identity {
	out := *in
	out.Doctor = clonePtr(in.Doctor)
	if in.Patient != nil {
		pp := *in.Patient
		pp.EmergencyContact = clonePtr(in.Patient.EmergencyContact)
		out.Patient = &pp
	}
	out.LockedUntil = cloneTime(in.LockedUntil)
	out.ResetExpiresAt = cloneTime(in.ResetExpiresAt)
	out.VerifyExpiresAt = cloneTime(in.VerifyExpiresAt)
	out.PasswordChangedAt = cloneTime(in.PasswordChangedAt)
	out.LastLoginAt = cloneTime(in.LastLoginAt)
	return &out
}

func clonePatient(in *model.Patient) *model.Patient {
	out := *in
	out.AssignedDoctors = slices.Clone(in.AssignedDoctors)
	out.MedicalHistory = slices.Clone(in.MedicalHistory)
	out.Allergies = slices.Clone(in.Allergies)
	out.Medications = slices.Clone(in.Medications)
	out.Vitals = make([]model.Vitals, len(in.Vitals))
	for i, v := range in.Vitals {
		v.BloodPressure = clonePtr(v.BloodPressure)
		out.Vitals[i] = v
	}
	if in.Vitals == nil {
		out.Vitals = nil
	}
	out.Insurance = clonePtr(in.Insurance)
	return &out
}

func cloneRecord(in *model.MedicalRecord) *model.MedicalRecord {
	out := *in
	out.Diagnoses = slices.Clone(in.Diagnoses)
	if in.Treatment != nil {
		t := *in.Treatment
		t.Medications = slices.Clone(in.Treatment.Medications)
		t.Procedures = slices.Clone(in.Treatment.Procedures)
		t.Recommendations = slices.Clone(in.Treatment.Recommendations)
		t.FollowUp = clonePtr(in.Treatment.FollowUp)
		out.Treatment = &t
	}
	out.Attachments = slices.Clone(in.Attachments)
	out.SharedWith = make([]model.ShareGrant, len(in.SharedWith))
	for i, g := range in.SharedWith {
		g.Permissions = slices.Clone(g.Permissions)
		g.ExpiresAt = cloneTime(g.ExpiresAt)
		out.SharedWith[i] = g
	}
	if in.SharedWith == nil {
		out.SharedWith = nil
	}
	out.AccessLog = slices.Clone(in.AccessLog)
	out.PreviousVersions = slices.Clone(in.PreviousVersions)
	return &out
}
