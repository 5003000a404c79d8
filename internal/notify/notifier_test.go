package notify

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	fetcherrors "canteen-menu/internal/common/errors"
	"canteen-menu/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-1")}, nil
}

type fakeSES struct {
	inputs []*ses.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("mail-1")}, nil
}

type countingNotifier struct {
	calls int
}

func (c *countingNotifier) Notify(ctx context.Context, n Notification) error {
	c.calls++
	return nil
}

func sampleNotification() Notification {
	cause := fetcherrors.NewNoData("No attachments found")
	return Notification{
		RunID:      "2f1c",
		Trigger:    "scheduler",
		Diagnostic: fetcherrors.Diagnose(cause, time.Date(2024, 6, 3, 6, 0, 0, 0, time.UTC)),
	}
}

func TestNotification_Rendering(t *testing.T) {
	n := sampleNotification()

	assert.Equal(t, "[canteen-menu] scheduler failed (NO_SOURCE_DATA)", n.Subject())
	body := n.Body()
	assert.Contains(t, body, "Run:       2f1c")
	assert.Contains(t, body, "Retryable: false")
	assert.Contains(t, body, "No attachments found")
}

func TestSNSNotifier(t *testing.T) {
	client := &fakeSNS{}
	n := NewSNSNotifier(client, "arn:aws:sns:eu-central-1:123456789012:menu-alerts")

	require.NoError(t, n.Notify(context.Background(), sampleNotification()))
	require.Len(t, client.inputs, 1)

	in := client.inputs[0]
	assert.Equal(t, "arn:aws:sns:eu-central-1:123456789012:menu-alerts", aws.ToString(in.TopicArn))
	assert.LessOrEqual(t, len(aws.ToString(in.Subject)), 100)
	assert.Equal(t, "NO_SOURCE_DATA", aws.ToString(in.MessageAttributes["kind"].StringValue))
	assert.Equal(t, "false", aws.ToString(in.MessageAttributes["retryable"].StringValue))
}

func TestSNSNotifier_TruncatesSubject(t *testing.T) {
	client := &fakeSNS{}
	n := sampleNotification()
	n.Trigger = strings.Repeat("x", 120)

	require.NoError(t, NewSNSNotifier(client, "arn").Notify(context.Background(), n))
	assert.Len(t, aws.ToString(client.inputs[0].Subject), 100)
}

func TestSESNotifier(t *testing.T) {
	client := &fakeSES{}
	n := NewSESNotifier(client, "menu@example.com", []string{"ops@example.com"})

	require.NoError(t, n.Notify(context.Background(), sampleNotification()))
	require.Len(t, client.inputs, 1)

	in := client.inputs[0]
	assert.Equal(t, "menu@example.com", aws.ToString(in.Source))
	assert.Equal(t, []string{"ops@example.com"}, in.Destination.ToAddresses)
	assert.Contains(t, aws.ToString(in.Message.Body.Text.Data), "NO_SOURCE_DATA")
}

func TestSESNotifier_NoRecipients(t *testing.T) {
	client := &fakeSES{}
	err := NewSESNotifier(client, "menu@example.com", nil).Notify(context.Background(), sampleNotification())

	assert.Error(t, err)
	assert.Empty(t, client.inputs)
}

func TestMulti_SwallowsChannelErrors(t *testing.T) {
	failing := &fakeSNS{err: stderrors.New("throttled")}
	ok := &countingNotifier{}
	m := NewMulti(logger.NewTestLogger(t)).
		Add("sns", NewSNSNotifier(failing, "arn")).
		Add("log", ok)

	assert.Equal(t, 2, m.Len())
	assert.NoError(t, m.Notify(context.Background(), sampleNotification()))
	assert.Len(t, failing.inputs, 1)
	assert.Equal(t, 1, ok.calls)
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Notify(context.Background(), sampleNotification()))
}
