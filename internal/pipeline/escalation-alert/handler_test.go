package escalationalert

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinical-decision-pipeline/internal/common/logger"
	"clinical-decision-pipeline/internal/models"
)

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
	calls         int
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.calls++
	if m.SendEmailFunc != nil {
		return m.SendEmailFunc(ctx, params, optFns...)
	}
	return &ses.SendEmailOutput{MessageId: aws.String("ses-msg-1")}, nil
}

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	calls       int
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.calls++
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, params, optFns...)
	}
	return &sns.PublishOutput{MessageId: aws.String("sns-msg-1")}, nil
}

func createTestConfig() *Config {
	return &Config{
		SNSEnabled: true,
		TopicARN:   "arn:aws:sns:ap-south-1:123456789012:clinical-escalations",
		SESEnabled: true,
		FromEmail:  "alerts@clinic.example",
		ToEmails:   []string{"oncall@clinic.example"},
	}
}

func highRiskInput() *Input {
	return &Input{
		SessionID:      "session-1",
		ChiefComplaint: "chest pain",
		Symptoms: []models.StructuredSymptom{
			{ClinicalTerm: "chest pain", Severity: models.SeveritySevere},
		},
		Risk: &models.RiskAssessment{
			RiskScore:          0.87,
			RiskLevel:          models.RiskTierCritical,
			EscalationRequired: true,
			RedFlags:           []string{"Chest pain - requires immediate evaluation"},
			Recommendations:    []string{"Seek emergency care immediately"},
		},
	}
}

func TestExecute_BothChannels(t *testing.T) {
	snsMock := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			assert.Equal(t, "arn:aws:sns:ap-south-1:123456789012:clinical-escalations", aws.ToString(params.TopicArn))
			assert.Contains(t, aws.ToString(params.Subject), "[CRITICAL]")
			assert.Contains(t, aws.ToString(params.Message), "Chest pain - requires immediate evaluation")
			assert.Equal(t, "critical", aws.ToString(params.MessageAttributes["riskLevel"].StringValue))
			return &sns.PublishOutput{MessageId: aws.String("m1")}, nil
		},
	}
	sesMock := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			assert.Equal(t, []string{"oncall@clinic.example"}, params.Destination.ToAddresses)
			assert.Equal(t, "alerts@clinic.example", aws.ToString(params.Source))
			assert.Contains(t, aws.ToString(params.Message.Body.Text.Data), "Session: session-1")
			return &ses.SendEmailOutput{MessageId: aws.String("e1")}, nil
		},
	}

	h := NewHandler(createTestConfig(), snsMock, sesMock, logger.NewTestLogger(t))
	out, err := h.Execute(context.Background(), highRiskInput())

	require.NoError(t, err)
	assert.Equal(t, StatusSent, out.Status)
	assert.Equal(t, []string{ChannelSNS, ChannelSES}, out.Channels)
	assert.NotEmpty(t, out.AlertID)
	assert.NotEmpty(t, out.SentAt)
	assert.Equal(t, 1, snsMock.calls)
	assert.Equal(t, 1, sesMock.calls)
}

func TestExecute_SkipsWhenNotRequired(t *testing.T) {
	snsMock := &MockSNSService{}
	sesMock := &MockSESService{}
	h := NewHandler(createTestConfig(), snsMock, sesMock, logger.NewTestLogger(t))

	input := highRiskInput()
	input.Risk.EscalationRequired = false
	input.Risk.RiskLevel = models.RiskTierLow

	out, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, out.Status)
	assert.Empty(t, out.Channels)
	assert.Zero(t, snsMock.calls)
	assert.Zero(t, sesMock.calls)
}

func TestExecute_Disabled(t *testing.T) {
	cfg := createTestConfig()
	cfg.SNSEnabled = false
	cfg.SESEnabled = false
	h := NewHandler(cfg, &MockSNSService{}, &MockSESService{}, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), highRiskInput())
	require.NoError(t, err)
	assert.Equal(t, StatusDisabled, out.Status)
	assert.False(t, h.Enabled())
}

func TestExecute_NilClientDisablesChannel(t *testing.T) {
	sesMock := &MockSESService{}
	h := NewHandler(createTestConfig(), nil, sesMock, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), highRiskInput())
	require.NoError(t, err)
	assert.Equal(t, []string{ChannelSES}, out.Channels)
	assert.Equal(t, 1, sesMock.calls)
}

func TestExecute_PartialFailureStillSent(t *testing.T) {
	snsMock := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	h := NewHandler(createTestConfig(), snsMock, &MockSESService{}, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), highRiskInput())
	require.NoError(t, err)
	assert.Equal(t, StatusSent, out.Status)
	assert.Equal(t, []string{ChannelSES}, out.Channels)
}

func TestExecute_AllChannelsFail(t *testing.T) {
	snsMock := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	sesMock := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("MessageRejected")
		},
	}
	h := NewHandler(createTestConfig(), snsMock, sesMock, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), highRiskInput())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotificationSendFailed)
	assert.Contains(t, err.Error(), "MessageRejected")
	require.NotNil(t, out)
	assert.Equal(t, StatusFailed, out.Status)
	assert.Empty(t, out.SentAt)
}

func TestExecute_MissingRisk(t *testing.T) {
	h := NewHandler(createTestConfig(), &MockSNSService{}, &MockSESService{}, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{})
	assert.ErrorIs(t, err, ErrMissingRisk)

	_, err = h.Execute(context.Background(), nil)
	assert.ErrorIs(t, err, ErrMissingRisk)
}

func TestSubjectFitsSNSLimit(t *testing.T) {
	subject := Subject(highRiskInput().Risk)
	assert.Equal(t, "[CRITICAL] Clinical escalation required (risk score 0.870)", subject)
	assert.LessOrEqual(t, len(truncate(subject+subject, 100)), 100)
}

func TestBody_OmitsEmptySections(t *testing.T) {
	input := &Input{Risk: &models.RiskAssessment{RiskScore: 0.7, RiskLevel: models.RiskTierHigh, EscalationRequired: true}}

	body := Body("alert-1", input)
	assert.Contains(t, body, "Alert ID: alert-1")
	assert.Contains(t, body, "Risk: 0.700 (high)")
	assert.NotContains(t, body, "Session:")
	assert.NotContains(t, body, "Red flags:")
}
