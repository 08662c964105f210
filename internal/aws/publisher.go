package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// Publisher sends JSON messages to one SQS queue.
type Publisher struct {
	SQS      SQSAPI
	QueueURL string

	// FIFO queues only: message attributes used as group and deduplication ids
	groupAttr string
	dedupAttr string
}

func NewPublisher(sqsClient SQSAPI, queueURL string) *Publisher {
	return &Publisher{
		SQS:      sqsClient,
		QueueURL: queueURL,
	}
}

// WithFIFO sets the attributes whose values become MessageGroupId and
// MessageDeduplicationId. Ignored unless the queue URL ends in ".fifo". An empty dedupAttr
// leaves deduplication to the queue's content-based setting.
func (p *Publisher) WithFIFO(groupAttr, dedupAttr string) *Publisher {
	p.groupAttr = groupAttr
	p.dedupAttr = dedupAttr
	return p
}

func (p *Publisher) fifo() bool { return strings.HasSuffix(p.QueueURL, ".fifo") }

// SendMessage sends messageBody with attributes as String message attributes; empty values
// are skipped.
func (p *Publisher) SendMessage(ctx context.Context, messageBody string, attributes map[string]string) error {
	input := &sqs.SendMessageInput{
		QueueUrl:    &p.QueueURL,
		MessageBody: &messageBody,
	}
	if len(attributes) > 0 {
		msgAttrs := map[string]sqstypes.MessageAttributeValue{}
		for k, v := range attributes {
			if v == "" {
				continue
			}
			msgAttrs[k] = sqstypes.MessageAttributeValue{
				DataType:    awsString("String"),
				StringValue: awsString(v),
			}
		}
		input.MessageAttributes = msgAttrs
	}
	if p.fifo() && p.groupAttr != "" {
		group := attributes[p.groupAttr]
		if group == "" {
			return fmt.Errorf("send message: fifo queue needs attribute %q", p.groupAttr)
		}
		input.MessageGroupId = awsString(group)
		if v := attributes[p.dedupAttr]; p.dedupAttr != "" && v != "" {
			input.MessageDeduplicationId = awsString(v)
		}
	}

	if _, err := p.SQS.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send message to %s: %w", p.QueueURL, err)
	}
	return nil
}

// SendJSON marshals v and sends it with SendMessage.
func (p *Publisher) SendJSON(ctx context.Context, v interface{}, attributes map[string]string) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return p.SendMessage(ctx, string(body), attributes)
}

func awsString(s string) *string { return &s }
