// internal/common/aws/clients.go
package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNSAPI is the part of the SNS client failure alerts are published through.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SESAPI is the part of the SES client failure mails are sent through.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// AlertClients holds the SDK clients of the enabled alert channels. A nil
// field means the channel is disabled.
type AlertClients struct {
	SNS SNSAPI
	SES SESAPI
}

// NewAlertClients loads the shared SDK config once and builds only the
// requested clients. With neither requested no credentials are resolved.
func NewAlertClients(ctx context.Context, region string, withSNS, withSES bool) (AlertClients, error) {
	var clients AlertClients
	if !withSNS && !withSES {
		return clients, nil
	}

	cfg, err := LoadConfig(ctx, region)
	if err != nil {
		return clients, err
	}
	if withSNS {
		clients.SNS = sns.NewFromConfig(cfg)
	}
	if withSES {
		clients.SES = ses.NewFromConfig(cfg)
	}
	return clients, nil
}

var (
	_ SNSAPI = (*sns.Client)(nil)
	_ SESAPI = (*ses.Client)(nil)
)
