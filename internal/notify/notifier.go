// Package notify publishes routing outcomes to the external messaging
// service (SNS) and flags allocation defects to operators (SES). This
// core never messages customers directly.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/logger"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/models"
)

// SNSPublisher is the slice of the SNS client the notifier uses.
type SNSPublisher interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// SESSender is the slice of the SES client the notifier uses.
type SESSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// Notifier fans routing outcomes out to the notification topic and, for
// defects, to the operator mailbox. All sends are best-effort: a delivery
// failure is logged and never fails the routing run that triggered it.
type Notifier struct {
	sns       SNSPublisher
	ses       SESSender
	topicARN  string
	fromEmail string
	opsEmails []string
	logger    logger.Logger
}

type Config struct {
	TopicARN  string
	FromEmail string
	OpsEmails []string
}

func New(snsClient SNSPublisher, sesClient SESSender, cfg Config, log logger.Logger) *Notifier {
	return &Notifier{
		sns:       snsClient,
		ses:       sesClient,
		topicARN:  cfg.TopicARN,
		fromEmail: cfg.FromEmail,
		opsEmails: cfg.OpsEmails,
		logger:    log,
	}
}

type allocationNotice struct {
	Type      string              `json:"type"`
	OrderID   string              `json:"orderId"`
	Groups    []models.SplitGroup `json:"groups,omitempty"`
	Reason    *models.FailureReason `json:"reason,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// OrderRouted publishes the final per-vendor allocation for an order.
func (n *Notifier) OrderRouted(ctx context.Context, req models.RoutingRequest, groups []models.SplitGroup) {
	n.publish(ctx, "ORDER_ROUTED", allocationNotice{
		Type:      "ORDER_ROUTED",
		OrderID:   req.OrderID,
		Groups:    groups,
		Timestamp: time.Now().UTC(),
	})
}

// Stockout publishes a terminal routing failure so the messaging layer
// can offer the customer a backorder or partial order.
func (n *Notifier) Stockout(ctx context.Context, req models.RoutingRequest, reason models.FailureReason) {
	n.publish(ctx, "ORDER_STOCKOUT", allocationNotice{
		Type:      "ORDER_STOCKOUT",
		OrderID:   req.OrderID,
		Reason:    &reason,
		Timestamp: time.Now().UTC(),
	})
}

// AllocationDefect mails operators: an allocation invariant broke, which
// is a bug, not a race.
func (n *Notifier) AllocationDefect(ctx context.Context, orderID, details string) {
	if n.ses == nil || len(n.opsEmails) == 0 {
		n.logger.Error("allocation defect (no ops mailbox configured)", map[string]interface{}{
			"orderId": orderID,
			"details": details,
		})
		return
	}

	subject := fmt.Sprintf("[routing] allocation defect on order %s", orderID)
	body := fmt.Sprintf("Order %s failed the allocation invariant at %s.\n\n%s\n",
		orderID, time.Now().UTC().Format(time.RFC3339), details)

	_, err := n.ses.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(n.fromEmail),
		Destination: &sestypes.Destination{ToAddresses: n.opsEmails},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
	})
	if err != nil {
		n.logger.Error("defect alert email failed", map[string]interface{}{
			"orderId": orderID,
			"error":   err.Error(),
		})
	}
}

func (n *Notifier) publish(ctx context.Context, noticeType string, notice allocationNotice) {
	if n.sns == nil || n.topicARN == "" {
		return
	}

	payload, err := json.Marshal(notice)
	if err != nil {
		return
	}

	_, err = n.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Message:  aws.String(string(payload)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"noticeType": {
				DataType:    aws.String("String"),
				StringValue: aws.String(noticeType),
			},
		},
	})
	if err != nil {
		n.logger.Error("notification publish failed", map[string]interface{}{
			"orderId": notice.OrderID,
			"type":    noticeType,
			"error":   err.Error(),
		})
	}
}
