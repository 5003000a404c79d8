package notify

import (
	"context"
	"fmt"

	commonaws "canteen-menu/internal/common/aws"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSNotifier publishes failures to a topic.
type SNSNotifier struct {
	client   commonaws.SNSAPI
	topicARN string
}

func NewSNSNotifier(client commonaws.SNSAPI, topicARN string) *SNSNotifier {
	return &SNSNotifier{client: client, topicARN: topicARN}
}

func (s *SNSNotifier) Notify(ctx context.Context, n Notification) error {
	subject := n.Subject()
	// SNS rejects subjects longer than 100 characters.
	if len(subject) > 100 {
		subject = subject[:100]
	}
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(n.Body()),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"kind": {DataType: aws.String("String"), StringValue: aws.String(string(n.Diagnostic.Kind))},
			"retryable": {
				DataType:    aws.String("String"),
				StringValue: aws.String(fmt.Sprintf("%t", n.Diagnostic.Retryable)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", s.topicARN, err)
	}
	return nil
}
