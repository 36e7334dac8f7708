package accounts

import (
	"context"

	"github.com/dmitrijs2005/realmd/internal/logging"
	"github.com/dmitrijs2005/realmd/internal/server/metrics"
)

// Notifier is told about every password change attempt made through
// Service.ChangePassword.
type Notifier interface {
	OnPasswordChange(ctx context.Context, accountID uint32)
	OnFailedPasswordChange(ctx context.Context, accountID uint32)
}

// AuditNotifier records password changes in the log and in metrics.
type AuditNotifier struct {
	logger  logging.Logger
	metrics *metrics.Metrics
}

func NewAuditNotifier(logger logging.Logger, m *metrics.Metrics) *AuditNotifier {
	return &AuditNotifier{logger: logger.With("module", "audit"), metrics: m}
}

func (a *AuditNotifier) OnPasswordChange(ctx context.Context, accountID uint32) {
	a.logger.Info(ctx, "password changed", "account", accountID)
	a.metrics.PasswordChange("changed")
}

func (a *AuditNotifier) OnFailedPasswordChange(ctx context.Context, accountID uint32) {
	a.logger.Warn(ctx, "password change failed", "account", accountID)
	a.metrics.PasswordChange("failed")
}

type nopNotifier struct{}

func (nopNotifier) OnPasswordChange(context.Context, uint32)       {}
func (nopNotifier) OnFailedPasswordChange(context.Context, uint32) {}
