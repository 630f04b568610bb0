package processors

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kuziva-m/mvp-sub001/internal/application/consts"
	"github.com/kuziva-m/mvp-sub001/internal/infra/db"
	"github.com/kuziva-m/mvp-sub001/internal/infra/mail"
	"github.com/stretchr/testify/require"
)

func finishedAttempt(status consts.DeliveryStatus) *db.DeliveryAttempt {
	attempt := db.NewDeliveryAttempt(uuid.New(), uuid.New())
	attempt.Status = status
	now := time.Now()
	attempt.CompletedAt = &now
	return attempt
}

func TestFailureNoticeGoesToOperator(t *testing.T) {
	attempt := finishedAttempt(consts.DeliveryStatusFailed)
	require.Equal(t, "ops@example.com", recipientFor(attempt, "ops@example.com"))
}

func TestCompletionMailGoesToCustomer(t *testing.T) {
	for _, status := range []consts.DeliveryStatus{
		consts.DeliveryStatusCompleted,
		consts.DeliveryStatusCompletedWithWarnings,
	} {
		attempt := finishedAttempt(status)
		require.Empty(t, recipientFor(attempt, "ops@example.com"), "status %v", status)
	}
}

func TestBuildMailDataForFailedAttempt(t *testing.T) {
	customer := &db.Customer{ID: uuid.New(), FirstName: "Mario", SecondName: "Rossi"}
	attempt := finishedAttempt(consts.DeliveryStatusFailed)
	domain := "marioswoodfiredpizza.com.au"
	attempt.Domain = &domain
	step := attempt.Step(consts.StagePublish)
	step.Status = consts.StepStatusFailed
	step.Error = &db.StepError{Kind: "transient", Message: "hosting api unavailable"}

	data, ok := buildMailData(customer, attempt).(mail.DeliveryFailedData)
	require.True(t, ok)
	require.Equal(t, "Mario", data.CustomerFirstName)
	require.Equal(t, domain, data.Domain)
	require.Equal(t, string(consts.StagePublish), data.FailedStep)
	require.Equal(t, "hosting api unavailable", data.Reason)
}

func TestBuildMailDataCollectsWarnings(t *testing.T) {
	customer := &db.Customer{ID: uuid.New(), FirstName: "Mario"}
	attempt := finishedAttempt(consts.DeliveryStatusCompletedWithWarnings)
	attempt.Step(consts.StageDNSPropagated).Warning = "propagation still pending"
	attempt.Step(consts.StageSSLVerify).Warning = "certificate pending"

	data, ok := buildMailData(customer, attempt).(mail.DeliveryCompletedData)
	require.True(t, ok)
	require.Equal(t, "propagation still pending; certificate pending", data.Warnings)
}
