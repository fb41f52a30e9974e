package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/warp/vacation-ledger/vacation"
)

// SendMessageAPI is the slice of the SQS client the publisher uses.
type SendMessageAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQS publishes each event to a queue for downstream consumers
// (payroll export, calendar sync).
type SQS struct {
	Client   SendMessageAPI
	QueueURL string
}

var _ vacation.Notifier = (*SQS)(nil)

func NewSQS(client SendMessageAPI, queueURL string) *SQS {
	return &SQS{Client: client, QueueURL: queueURL}
}

// NewSQSFromEnv builds a client from the default AWS credential chain.
func NewSQSFromEnv(ctx context.Context, queueURL string) (*SQS, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return NewSQS(sqs.NewFromConfig(cfg), queueURL), nil
}

func (s *SQS) Notify(ctx context.Context, e vacation.Event) error {
	body, err := json.Marshal(NewMessage(e))
	if err != nil {
		return fmt.Errorf("failed to marshal event for SQS: %w", err)
	}

	_, err = s.Client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.QueueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {DataType: aws.String("String"), StringValue: aws.String(string(e.Type))},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send message to SQS: %w", err)
	}
	return nil
}
