package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/sirupsen/logrus"
)

// SQSAPI is the part of the SQS client the announcer uses.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSAnnouncer sends announcements to an SQS queue as JSON messages.
type SQSAnnouncer struct {
	client   SQSAPI
	queueURL string
	log      *logrus.Entry
}

var _ Announcer = (*SQSAnnouncer)(nil)

// NewSQSAnnouncer loads AWS configuration for region and targets queueURL.
func NewSQSAnnouncer(ctx context.Context, queueURL, region string, logger *logrus.Logger) (*SQSAnnouncer, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return NewSQSAnnouncerWithClient(sqs.NewFromConfig(cfg), queueURL, logger), nil
}

// NewSQSAnnouncerWithClient uses an existing client.
func NewSQSAnnouncerWithClient(client SQSAPI, queueURL string, logger *logrus.Logger) *SQSAnnouncer {
	return &SQSAnnouncer{
		client:   client,
		queueURL: queueURL,
		log:      logger.WithField("component", "dispatch.sqs"),
	}
}

// Announce sends one message per clip.
func (s *SQSAnnouncer) Announce(ctx context.Context, a Announcement) error {
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal announcement: %w", err)
	}

	out, err := s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("send sqs message: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"clip_id":    a.ClipID,
		"message_id": aws.ToString(out.MessageId),
	}).Info("Clip enqueued")
	return nil
}
