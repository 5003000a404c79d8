package notify

import (
	"context"
	"fmt"

	commonaws "canteen-menu/internal/common/aws"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESNotifier mails failures to a fixed recipient list.
type SESNotifier struct {
	client commonaws.SESAPI
	from   string
	to     []string
}

func NewSESNotifier(client commonaws.SESAPI, from string, to []string) *SESNotifier {
	return &SESNotifier{client: client, from: from, to: to}
}

func (s *SESNotifier) Notify(ctx context.Context, n Notification) error {
	if len(s.to) == 0 {
		return fmt.Errorf("no recipients configured")
	}
	_, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: s.to,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(n.Subject())},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(n.Body())},
			},
		},
		Source: aws.String(s.from),
	})
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
