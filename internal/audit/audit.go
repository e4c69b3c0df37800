package audit

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

// Action names the audited operation.
type Action string

const (
	ActionRegister       Action = "register"
	ActionLogin          Action = "login"
	ActionLogout         Action = "logout"
	ActionLogoutAll      Action = "logout_all"
	ActionPasswordChange Action = "password_change"
	ActionPasswordForgot Action = "password_forgot"
	ActionPasswordReset  Action = "password_reset"
	ActionEmailVerify    Action = "email_verify"
	ActionAccountLocked  Action = "account_locked"
	ActionUserUpdate     Action = "user_update"
	ActionUserDeactivate Action = "user_deactivate"
	ActionPatientUpdate  Action = "patient_update"
	ActionDoctorAssign   Action = "doctor_assign"
	ActionDoctorUnassign Action = "doctor_unassign"
	ActionRecordCreate   Action = "record_create"
	ActionRecordUpdate   Action = "record_update"
	ActionRecordDelete   Action = "record_delete"
	ActionRecordShare    Action = "record_share"
	ActionRecordAttach   Action = "record_attach"
	ActionRateLimited    Action = "rate_limited"
	ActionAccessDenied   Action = "access_denied"
)

// Event is one entry of the append-only audit trail.
type Event struct {
	ID        string            `json:"id" bson:"_id"`
	Timestamp time.Time         `json:"timestamp" bson:"timestamp"`
	Action    Action            `json:"action" bson:"action"`
	ActorID   string            `json:"actorId,omitempty" bson:"actorId,omitempty"`
	Target    string            `json:"target,omitempty" bson:"target,omitempty"`
	IP        string            `json:"ip,omitempty" bson:"ip,omitempty"`
	RequestID string            `json:"requestId,omitempty" bson:"requestId,omitempty"`
	Success   bool              `json:"success" bson:"success"`
	Error     string            `json:"error,omitempty" bson:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

// NewEventID returns a time-sortable event id.
func NewEventID() string {
	return ksuid.New().String()
}

// Sink receives emitted audit events.
type Sink interface {
	Emit(ctx context.Context, event Event) error
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) error { return nil }

// ChannelSink writes audit events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) error {
	select {
	case s.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// ZapSink writes one structured log line per event.
type ZapSink struct {
	logger *zap.Logger
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger.Named("audit")}
}

func (s *ZapSink) Emit(_ context.Context, event Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("action", string(event.Action)),
		zap.String("actor_id", event.ActorID),
		zap.String("target", event.Target),
		zap.String("ip", event.IP),
		zap.String("request_id", event.RequestID),
		zap.Bool("success", event.Success),
		zap.Time("timestamp", event.Timestamp),
	}
	if event.Error != "" {
		fields = append(fields, zap.String("error", event.Error))
	}
	if len(event.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", event.Metadata))
	}
	s.logger.Info("audit", fields...)
	return nil
}

// MultiSink fans an event out to every sink. All sinks are attempted; the
// returned error joins the individual failures.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, event Event) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
