package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNSPublisher implements cloudprovider.Publisher against one topic.
type SNSPublisher struct {
	client   *sns.Client
	topicARN string
}

// NewPublisher returns a publisher for the given topic ARN. An empty ARN
// yields a publisher whose Publish is a logged no-op at the dispatcher,
// so a missing topic never breaks a cycle.
func (p *Provider) NewPublisher(topicARN string) *SNSPublisher {
	return &SNSPublisher{client: p.snsClient, topicARN: topicARN}
}

func (s *SNSPublisher) Publish(ctx context.Context, subject, body string) error {
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(body),
	})
	return wrapErr("publishing notification", err)
}
