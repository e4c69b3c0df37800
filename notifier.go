package medvault

import (
	"context"
	"time"

	"github.com/MrEthical07/medvault/model"
	"go.uber.org/zap"
)

// LogNotifier writes secret delivery links to the log at debug level. It
// stands in for a mail transport in development.
type LogNotifier struct {
	logger  *zap.Logger
	baseURL string
}

// NewLogNotifier builds links as baseURL + path + secret.
func NewLogNotifier(logger *zap.Logger, baseURL string) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger.Named("notifier"), baseURL: baseURL}
}

func (n *LogNotifier) PasswordReset(_ context.Context, identity *model.Identity, secret string, expires time.Time) error {
	n.logger.Debug("password reset link",
		zap.String("user_id", identity.ID),
		zap.String("link", n.baseURL+"/api/auth/resetpassword/"+secret),
		zap.Time("expires_at", expires),
	)
	return nil
}

func (n *LogNotifier) EmailVerification(_ context.Context, identity *model.Identity, secret string, expires time.Time) error {
	n.logger.Debug("email verification link",
		zap.String("user_id", identity.ID),
		zap.String("link", n.baseURL+"/api/auth/verifyemail/"+secret),
		zap.Time("expires_at", expires),
	)
	return nil
}

type noopNotifier struct{}

func (noopNotifier) PasswordReset(context.Context, *model.Identity, string, time.Time) error {
	return nil
}

func (noopNotifier) EmailVerification(context.Context, *model.Identity, string, time.Time) error {
	return nil
}
