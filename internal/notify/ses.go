package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.uber.org/zap"

	"github.com/lumenlive/backend/pkg/apperr"
)

type sesNotifier struct {
	client      *ses.Client
	fromAddress string
	fromName    string
	logger      *zap.Logger
}

func newSESNotifier(cfg Config, logger *zap.Logger) *sesNotifier {
	awsCfg := aws.Config{
		Region: cfg.Region,
		Credentials: aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	}
	return &sesNotifier{
		client:      ses.NewFromConfig(awsCfg),
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
		logger:      logger,
	}
}

// SendTemplateNotification sends one SES templated email. Merge fields become
// the SES template data object.
func (s *sesNotifier) SendTemplateNotification(ctx context.Context, address, templateID string, mergeFields map[string]string) error {
	data, err := json.Marshal(mergeFields)
	if err != nil {
		return apperr.External("encode template data: %v", err)
	}
	source := s.fromAddress
	if s.fromName != "" {
		source = fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)
	}
	input := &ses.SendTemplatedEmailInput{
		Source:       aws.String(source),
		Template:     aws.String(templateID),
		TemplateData: aws.String(string(data)),
		Destination:  &types.Destination{ToAddresses: []string{address}},
	}
	out, err := s.client.SendTemplatedEmail(ctx, input)
	if err != nil {
		return apperr.External("ses send to %s: %v", address, err)
	}
	s.logger.Debug("notification sent via SES",
		zap.String("address", address),
		zap.String("message_id", aws.ToString(out.MessageId)),
	)
	return nil
}
