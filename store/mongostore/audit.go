package mongostore

import (
	"context"

	"github.com/MrEthical07/medvault/internal/audit"
)

// AuditSink appends audit events to the audit_logs collection.
type AuditSink struct {
	store *Store
}

func (s *Store) AuditSink() *AuditSink {
	return &AuditSink{store: s}
}

func (a *AuditSink) Emit(ctx context.Context, event audit.Event) error {
	_, err := a.store.AuditLogs.InsertOne(ctx, event)
	return err
}
