package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickshift/internal/platform/config"
)

func TestSendGridPostsMail(t *testing.T) {
	var got sendGridRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mail/send", r.URL.Path)
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	mailer := NewSendGrid(WithAPIKey("sg-key"), WithBaseURL(srv.URL+"/"))
	err := mailer.Send(context.Background(), "no-reply@quickshift.app", "worker@example.com", "New gig nearby", "A gig matches your preferences.")
	require.NoError(t, err)

	assert.Equal(t, "Bearer sg-key", auth)
	assert.Equal(t, "worker@example.com", got.Personalizations[0].To[0].Email)
	assert.Equal(t, "no-reply@quickshift.app", got.From.Email)
	assert.Equal(t, "New gig nearby", got.Subject)
	assert.Equal(t, "A gig matches your preferences.", got.Content[0].Value)
}

func TestSendGridErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := NewSendGrid(WithAPIKey("bad"), WithBaseURL(srv.URL)).Send(context.Background(), "a@x.io", "b@x.io", "s", "b")
	assert.ErrorContains(t, err, "unexpected status 401")

	err = NewSendGrid(WithBaseURL(srv.URL)).Send(context.Background(), "a@x.io", "b@x.io", "s", "b")
	assert.ErrorContains(t, err, "api key required")
}

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = params
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, f.err
}

func TestSESBuildsInput(t *testing.T) {
	client := &fakeSES{}
	mailer := NewSESWithClient(client)

	require.NoError(t, mailer.Send(context.Background(), "no-reply@quickshift.app", "boss@example.com", "Payment received", "Thanks"))
	require.NotNil(t, client.input)
	assert.Equal(t, []string{"boss@example.com"}, client.input.Destination.ToAddresses)
	assert.Equal(t, "no-reply@quickshift.app", aws.ToString(client.input.Source))
	assert.Equal(t, "Payment received", aws.ToString(client.input.Message.Subject.Data))
	assert.Equal(t, "Thanks", aws.ToString(client.input.Message.Body.Text.Data))

	client.err = errors.New("throttled")
	assert.ErrorContains(t, mailer.Send(context.Background(), "a@x.io", "b@x.io", "s", "b"), "throttled")
	assert.Error(t, mailer.Send(context.Background(), "a@x.io", "", "s", "b"))
}

func TestNewSelectsProvider(t *testing.T) {
	ctx := context.Background()
	assert.IsType(t, noopMailer{}, New(ctx, config.Config{EmailProvider: config.EmailProviderNoop}))
	assert.IsType(t, &SendGrid{}, New(ctx, config.Config{EmailProvider: config.EmailProviderSendGrid, SendGridAPIKey: "k"}))
	assert.IsType(t, &smtpMailer{}, New(ctx, config.Config{EmailProvider: config.EmailProviderSMTP, SMTPHost: "smtp.local"}))
}

func TestBuildMessageStripsHeaderInjection(t *testing.T) {
	msg := string(buildMessage("a@x.io", "b@x.io", "hi\r\nBcc: evil@x.io", "body"))
	assert.Contains(t, msg, "Subject: hi  Bcc: evil@x.io\r\n")
	assert.NotContains(t, msg, "\r\nBcc:")
}
