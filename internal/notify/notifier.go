// Package notify abstracts the external notification collaborator: one
// templated message per recipient, failures independent per call.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Notifier sends a templated notification to a single address. Implementations
// must treat each call as an isolated failure domain.
type Notifier interface {
	SendTemplateNotification(ctx context.Context, address, templateID string, mergeFields map[string]string) error
}

// Config selects and configures the notification provider.
type Config struct {
	Provider        string // "ses" or "noop"
	FromAddress     string
	FromName        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// New creates a notifier from config. Provider "ses" uses AWS SES templated
// email; "noop" or unknown logs and succeeds, for development.
func New(cfg Config, logger *zap.Logger) Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Provider {
	case "ses":
		return newSESNotifier(cfg, logger)
	case "noop":
		return &noopNotifier{logger: logger}
	default:
		logger.Warn("unknown notification provider, using noop", zap.String("provider", cfg.Provider))
		return &noopNotifier{logger: logger}
	}
}

type noopNotifier struct {
	logger *zap.Logger
}

func (n *noopNotifier) SendTemplateNotification(_ context.Context, address, templateID string, mergeFields map[string]string) error {
	n.logger.Info("notification would be sent (noop)",
		zap.String("address", address),
		zap.String("template_id", templateID),
		zap.Any("merge_fields", mergeFields),
	)
	return nil
}
