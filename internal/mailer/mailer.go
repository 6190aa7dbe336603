// Package mailer delivers verification and password reset e-mails.
package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/dennisdiepolder/callscope/internal/config"
	"github.com/rs/zerolog"
)

// Message is a plain-text e-mail
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends messages
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// VerificationMessage builds the sign-up confirmation e-mail
func VerificationMessage(to, name, code string, ttl time.Duration) Message {
	return Message{
		To:      to,
		Subject: "Your CallScope verification code",
		Body: fmt.Sprintf("Hi %s,\n\nyour verification code is %s.\nIt expires in %s.\n",
			greeting(name), code, ttl),
	}
}

// ResetMessage builds the password reset e-mail
func ResetMessage(to, name, link string, ttl time.Duration) Message {
	return Message{
		To:      to,
		Subject: "Reset your CallScope password",
		Body: fmt.Sprintf("Hi %s,\n\nopen the link below to choose a new password:\n%s\n\nThe link expires in %s. If you did not ask for this, ignore this e-mail.\n",
			greeting(name), link, ttl),
	}
}

func greeting(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return "there"
}

// New creates the mailer selected by cfg.Mode
func New(ctx context.Context, cfg config.MailConfig, logger zerolog.Logger) (Mailer, error) {
	switch cfg.Mode {
	case config.MailModeSES:
		return NewSESMailer(ctx, cfg, logger)
	default:
		return NewLogMailer(logger), nil
	}
}

// LogMailer writes messages to the log instead of sending them
type LogMailer struct {
	logger zerolog.Logger
}

// NewLogMailer creates a development mailer
func NewLogMailer(logger zerolog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With().Str("component", "mailer").Logger()}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.Body).
		Msg("e-mail not sent (log mode)")
	return nil
}

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESMailer sends messages through Amazon SES
type SESMailer struct {
	client sesAPI
	from   string
	logger zerolog.Logger
}

// NewSESMailer creates an SES mailer. With an endpoint set, a static local
// credential is used instead of the default AWS chain.
func NewSESMailer(ctx context.Context, cfg config.MailConfig, logger zerolog.Logger) (*SESMailer, error) {
	var client *sesv2.Client

	if cfg.Endpoint != "" {
		client = sesv2.New(sesv2.Options{
			Region:       cfg.Region,
			BaseEndpoint: aws.String(cfg.Endpoint),
			Credentials:  credentials.NewStaticCredentialsProvider("local", "local", ""),
		})
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client = sesv2.NewFromConfig(awsCfg)
	}

	logger.Info().
		Str("region", cfg.Region).
		Str("endpoint", cfg.Endpoint).
		Msg("SES mailer initialized")

	return &SESMailer{
		client: client,
		from:   cfg.From,
		logger: logger.With().Str("component", "mailer").Logger(),
	}, nil
}

func (m *SESMailer) Send(ctx context.Context, msg Message) error {
	out, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.from),
		Destination:      &sestypes.Destination{ToAddresses: []string{msg.To}},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &sestypes.Body{
					Text: &sestypes.Content{Data: aws.String(msg.Body), Charset: aws.String("UTF-8")},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send e-mail: %w", err)
	}

	m.logger.Info().
		Str("subject", msg.Subject).
		Str("message_id", aws.ToString(out.MessageId)).
		Msg("e-mail sent")
	return nil
}
