// internal/pipeline/escalation-alert/handler.go
package escalationalert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/google/uuid"

	"clinical-decision-pipeline/internal/common/logger"
	"clinical-decision-pipeline/internal/common/metrics"
	"clinical-decision-pipeline/internal/models"
)

const Operation = "escalation-alert"

var (
	ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")
	ErrMissingRisk            = errors.New("MISSING_RISK_ASSESSMENT")
)

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Handler struct {
	config    *Config
	snsClient SNSService
	sesClient SESService
	logger    logger.Logger
}

// NewHandler wires the alert channels. A nil client disables its channel.
func NewHandler(config *Config, snsClient SNSService, sesClient SESService, log logger.Logger) *Handler {
	if config == nil {
		config = LoadConfig()
	}
	return &Handler{
		config:    config,
		snsClient: snsClient,
		sesClient: sesClient,
		logger:    logger.ForComponent(log, Operation),
	}
}

// Enabled reports whether at least one channel can deliver alerts.
func (h *Handler) Enabled() bool {
	return h.snsEnabled() || h.sesEnabled()
}

func (h *Handler) snsEnabled() bool {
	return h.config.SNSEnabled && h.snsClient != nil && h.config.TopicARN != ""
}

func (h *Handler) sesEnabled() bool {
	return h.config.SESEnabled && h.sesClient != nil && h.config.FromEmail != "" && len(h.config.ToEmails) > 0
}

// Execute sends an escalation alert when the assessment requires one.
// Channels are attempted independently; an error is returned only when every
// attempted channel failed.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.Risk == nil {
		return nil, ErrMissingRisk
	}

	alertID := uuid.New().String()
	if !input.Risk.EscalationRequired {
		return &Output{AlertID: alertID, Status: StatusSkipped, Channels: []string{}}, nil
	}
	if !h.Enabled() {
		h.logger.Debug("escalation alert channels disabled", map[string]interface{}{
			"sessionId": input.SessionID,
		})
		return &Output{AlertID: alertID, Status: StatusDisabled, Channels: []string{}}, nil
	}

	if h.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Timeout)
		defer cancel()
	}

	subject := Subject(input.Risk)
	body := Body(alertID, input)

	var (
		sent     []string
		failures []string
	)

	if h.snsEnabled() {
		if err := h.publish(ctx, alertID, subject, body, input.Risk); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", ChannelSNS, err))
			h.record(ChannelSNS, StatusFailed)
			h.logger.Error("sns alert failed", map[string]interface{}{
				"alertId": alertID,
				"error":   err.Error(),
			})
		} else {
			sent = append(sent, ChannelSNS)
			h.record(ChannelSNS, StatusSent)
		}
	}

	if h.sesEnabled() {
		if err := h.sendEmail(ctx, subject, body); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", ChannelSES, err))
			h.record(ChannelSES, StatusFailed)
			h.logger.Error("ses alert failed", map[string]interface{}{
				"alertId": alertID,
				"error":   err.Error(),
			})
		} else {
			sent = append(sent, ChannelSES)
			h.record(ChannelSES, StatusSent)
		}
	}

	out := &Output{
		AlertID:  alertID,
		Status:   StatusSent,
		Channels: sent,
		SentAt:   time.Now().UTC().Format(time.RFC3339),
	}
	if out.Channels == nil {
		out.Channels = []string{}
	}

	if len(sent) == 0 {
		out.Status = StatusFailed
		out.SentAt = ""
		return out, fmt.Errorf("%w: %s", ErrNotificationSendFailed, strings.Join(failures, "; "))
	}

	h.logger.Info("escalation alert sent", map[string]interface{}{
		"alertId":   alertID,
		"sessionId": input.SessionID,
		"riskLevel": input.Risk.RiskLevel,
		"channels":  sent,
	})
	return out, nil
}

func (h *Handler) publish(ctx context.Context, alertID, subject, body string, risk *models.RiskAssessment) error {
	_, err := h.snsClient.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(h.config.TopicARN),
		Subject:  aws.String(truncate(subject, 100)),
		Message:  aws.String(body),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"alertId": {
				DataType:    aws.String("String"),
				StringValue: aws.String(alertID),
			},
			"riskLevel": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(risk.RiskLevel)),
			},
		},
	})
	return err
}

func (h *Handler) sendEmail(ctx context.Context, subject, body string) error {
	_, err := h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: h.config.ToEmails,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(h.config.FromEmail),
	})
	return err
}

func (h *Handler) record(channel, status string) {
	metrics.EscalationAlertsSent.WithLabelValues(channel, status).Inc()
}

// Subject is the one-line alert title.
func Subject(risk *models.RiskAssessment) string {
	return fmt.Sprintf("[%s] Clinical escalation required (risk score %.3f)",
		strings.ToUpper(string(risk.RiskLevel)), risk.RiskScore)
}

// Body renders the plain-text alert.
func Body(alertID string, input *Input) string {
	var b strings.Builder
	risk := input.Risk

	fmt.Fprintf(&b, "Alert ID: %s\n", alertID)
	if input.SessionID != "" {
		fmt.Fprintf(&b, "Session: %s\n", input.SessionID)
	}
	if input.ChiefComplaint != "" {
		fmt.Fprintf(&b, "Chief complaint: %s\n", input.ChiefComplaint)
	}
	fmt.Fprintf(&b, "Risk: %.3f (%s)\n", risk.RiskScore, risk.RiskLevel)

	if len(input.Symptoms) > 0 {
		b.WriteString("\nSymptoms:\n")
		for _, s := range input.Symptoms {
			fmt.Fprintf(&b, "- %s (%s)\n", s.ClinicalTerm, s.Severity)
		}
	}
	if len(risk.RedFlags) > 0 {
		b.WriteString("\nRed flags:\n")
		for _, f := range risk.RedFlags {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	if len(risk.Recommendations) > 0 {
		b.WriteString("\nRecommendations:\n")
		for _, r := range risk.Recommendations {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	b.WriteString("\nDecision support only. Not a diagnosis.\n")
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
