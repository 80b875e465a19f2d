package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESClient is the slice of the SES API the mailer needs.
type SESClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SES struct {
	client SESClient
}

func NewSES(ctx context.Context, region string) (*SES, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("ses: load config: %w", err)
	}
	client := ses.NewFromConfig(cfg, func(o *ses.Options) {
		o.RetryMaxAttempts = 3
	})
	return &SES{client: client}, nil
}

func NewSESWithClient(client SESClient) *SES {
	return &SES{client: client}
}

func (s *SES) Send(ctx context.Context, from, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("ses: destination required")
	}
	if strings.TrimSpace(from) == "" {
		return fmt.Errorf("ses: from required")
	}
	input := &ses.SendEmailInput{
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(firstNonEmpty(body, subject)), Charset: aws.String("UTF-8")},
			},
		},
		Source: aws.String(from),
	}
	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses: send: %w", err)
	}
	return nil
}
