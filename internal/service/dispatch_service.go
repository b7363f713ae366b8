package service

import (
	"context"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/habeasdata/consent-campaigns/internal/gateway"
	"github.com/habeasdata/consent-campaigns/internal/models"
	"github.com/habeasdata/consent-campaigns/pkg/utils"
)

// TestCampaignName is the campaign that single test sends are filed under.
const TestCampaignName = "Campaña de Prueba"

// DispatchStore is the slice of the consent store the dispatch workflow needs.
type DispatchStore interface {
	CurrentTermsVersion(ctx context.Context) (string, error)
	GetOrCreateCampaign(ctx context.Context, name string) (int64, error)
	UpsertPendingRequest(ctx context.Context, p models.UpsertParams, mode models.UpsertMode) (int64, bool, error)
	LogSendAttempt(ctx context.Context, requestID int64, status *int, body *string) error
	RecordSendFailure(ctx context.Context, requestID int64, status *int, body *string) error
	RefreshRequestSentAt(ctx context.Context, requestID int64) error
	ExtendRequestExpiry(ctx context.Context, requestID int64, validityDays int) error
	QueryRequests(ctx context.Context, filter models.RequestFilter) ([]models.ConsentRequest, error)
	StalePendingRequests(ctx context.Context, olderThanDays int) ([]models.ConsentRequest, error)
}

// MessageSender sends one consent message through the gateway.
type MessageSender interface {
	SendText(ctx context.Context, phone, name, token, template string) gateway.SendResult
}

// Delayer paces consecutive sends within a dispatch pass.
type Delayer interface {
	Pause()
}

// RandomDelayer sleeps a uniformly random duration between Min and Max.
// The randomized pacing is a deliberate throttle against provider rate
// limits and anti-spam detection, which is also why passes are sequential.
type RandomDelayer struct {
	Min time.Duration
	Max time.Duration
}

// Pause blocks for the randomized pacing interval.
func (d RandomDelayer) Pause() {
	if d.Max <= d.Min {
		time.Sleep(d.Min)
		return
	}
	time.Sleep(d.Min + time.Duration(rand.Int63n(int64(d.Max-d.Min))))
}

// NoDelay disables pacing; used by tests and single test sends.
type NoDelay struct{}

// Pause is a no-op.
func (NoDelay) Pause() {}

// Recipient outcome kinds within a dispatch pass.
const (
	OutcomeSent    = "sent"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// RecipientOutcome is the per-recipient result of a dispatch pass.
type RecipientOutcome struct {
	Phone     string `json:"phone"`
	RequestID int64  `json:"requestId,omitempty"`
	Outcome   string `json:"outcome"`
	Detail    string `json:"detail,omitempty"`
}

// DispatchResult aggregates one pass. Sent + Skipped + Failed == Attempted.
type DispatchResult struct {
	Attempted int                `json:"attempted"`
	Sent      int                `json:"sent"`
	Skipped   int                `json:"skipped"`
	Failed    int                `json:"failed"`
	Outcomes  []RecipientOutcome `json:"outcomes"`
}

func (r *DispatchResult) add(o RecipientOutcome) {
	r.Attempted++
	switch o.Outcome {
	case OutcomeSent:
		r.Sent++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
	}
	r.Outcomes = append(r.Outcomes, o)
}

// DispatchService drives sequential dispatch passes over recipient lists:
// initial campaign sends, single test sends, manual resends of pending
// requests and automatic stale resends. Recipients are processed strictly
// in input order; one recipient's failure never aborts the pass, while a
// missing current terms version aborts it before any send.
type DispatchService struct {
	store          DispatchStore
	sender         MessageSender
	delayer        Delayer
	validityDays   int
	extendOnResend bool
	logger         *logrus.Logger
}

// NewDispatchService creates a new dispatch service instance
func NewDispatchService(
	store DispatchStore,
	sender MessageSender,
	delayer Delayer,
	validityDays int,
	extendOnResend bool,
	logger *logrus.Logger,
) *DispatchService {
	return &DispatchService{
		store:          store,
		sender:         sender,
		delayer:        delayer,
		validityDays:   validityDays,
		extendOnResend: extendOnResend,
		logger:         logger,
	}
}

// RunInitial enrolls and messages a fresh recipient list under the named
// campaign. Duplicate enrollments for the same (phone, campaign) are
// recognized skip conditions: no send, no log entry, pass continues.
func (s *DispatchService) RunInitial(ctx context.Context, campaignName string, recipients []models.Recipient, template string, validityDays int) (*DispatchResult, error) {
	termsVersion, err := s.store.CurrentTermsVersion(ctx)
	if err != nil {
		return nil, err
	}

	campaignID, err := s.store.GetOrCreateCampaign(ctx, campaignName)
	if err != nil {
		return nil, err
	}

	if validityDays <= 0 {
		validityDays = s.validityDays
	}

	result := &DispatchResult{}
	for i, recipient := range recipients {
		if i > 0 {
			s.delayer.Pause()
		}

		language := recipient.Language
		if language == "" {
			language = "es"
		}

		token := utils.GenerateToken()
		params := models.UpsertParams{
			Phone:        recipient.Phone,
			Name:         recipient.Name,
			Token:        token,
			ExpiresAt:    time.Now().AddDate(0, 0, validityDays),
			TermsVersion: termsVersion,
			CampaignID:   campaignID,
			Language:     language,
		}

		requestID, inserted, err := s.store.UpsertPendingRequest(ctx, params, models.UpsertSkipDuplicates)
		if err != nil {
			s.logger.WithError(err).WithField("phone", recipient.Phone).Warn("Failed to enroll recipient")
			result.add(RecipientOutcome{Phone: recipient.Phone, Outcome: OutcomeFailed, Detail: err.Error()})
			continue
		}
		if !inserted {
			s.logger.WithFields(logrus.Fields{
				"phone":    recipient.Phone,
				"campaign": campaignName,
			}).Info("Recipient already enrolled, skipping")
			result.add(RecipientOutcome{Phone: recipient.Phone, Outcome: OutcomeSkipped, Detail: "already enrolled in campaign"})
			continue
		}

		outcome := s.sendAndRecord(ctx, requestID, recipient.Phone, recipient.Name, token, template)
		result.add(outcome)
	}

	s.logPassResult("initial", campaignName, result)
	return result, nil
}

// RunTestSend enrolls a single recipient in the test campaign with a
// one-day link and sends immediately, replacing any earlier test request
// for the same phone.
func (s *DispatchService) RunTestSend(ctx context.Context, phone, name, template string) (*RecipientOutcome, error) {
	termsVersion, err := s.store.CurrentTermsVersion(ctx)
	if err != nil {
		return nil, err
	}

	campaignID, err := s.store.GetOrCreateCampaign(ctx, TestCampaignName)
	if err != nil {
		return nil, err
	}

	token := utils.GenerateToken()
	params := models.UpsertParams{
		Phone:        phone,
		Name:         name,
		Token:        token,
		ExpiresAt:    time.Now().AddDate(0, 0, 1),
		TermsVersion: termsVersion,
		CampaignID:   campaignID,
		Language:     "es",
	}

	requestID, _, err := s.store.UpsertPendingRequest(ctx, params, models.UpsertForceResend)
	if err != nil {
		return nil, err
	}

	outcome := s.sendAndRecord(ctx, requestID, phone, name, token, template)
	return &outcome, nil
}

// ResendPending re-dispatches every pending request matching the filter,
// issuing each a fresh token via the force-resend upsert.
func (s *DispatchService) ResendPending(ctx context.Context, filter models.RequestFilter, template string) (*DispatchResult, error) {
	termsVersion, err := s.store.CurrentTermsVersion(ctx)
	if err != nil {
		return nil, err
	}

	filter.Statuses = []string{models.StatusPending}
	rows, err := s.store.QueryRequests(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := &DispatchResult{}
	for i, row := range rows {
		if i > 0 {
			s.delayer.Pause()
		}
		result.add(s.resendOne(ctx, row, termsVersion, template, false))
	}

	s.logPassResult("resend-pending", "", result)
	return result, nil
}

// ResendStale re-dispatches pending requests whose last send is older than
// the threshold. By default the validity window is left untouched so the
// staleness clock restarts without granting a longer overall window; with
// extend_on_resend set, expires_at is recomputed as well.
func (s *DispatchService) ResendStale(ctx context.Context, olderThanDays int, template string) (*DispatchResult, error) {
	termsVersion, err := s.store.CurrentTermsVersion(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.StalePendingRequests(ctx, olderThanDays)
	if err != nil {
		return nil, err
	}

	result := &DispatchResult{}
	for i, row := range rows {
		if i > 0 {
			s.delayer.Pause()
		}
		result.add(s.resendOne(ctx, row, termsVersion, template, true))
	}

	s.logPassResult("resend-stale", "", result)
	return result, nil
}

// resendOne re-enrolls a known request with a fresh token and sends. Rows
// come from a pending-only query, so the force upsert lands on the same
// (phone, campaign) row and replaces its token.
func (s *DispatchService) resendOne(ctx context.Context, row models.ConsentRequest, termsVersion, template string, stale bool) RecipientOutcome {
	token := utils.GenerateToken()
	params := models.UpsertParams{
		Phone:        row.Phone,
		Name:         row.Name,
		Token:        token,
		ExpiresAt:    time.Now().AddDate(0, 0, s.validityDays),
		TermsVersion: termsVersion,
		CampaignID:   row.CampaignID,
		Language:     row.Language,
	}

	requestID, _, err := s.store.UpsertPendingRequest(ctx, params, models.UpsertForceResend)
	if err != nil {
		s.logger.WithError(err).WithField("phone", row.Phone).Warn("Failed to re-enroll recipient")
		return RecipientOutcome{Phone: row.Phone, Outcome: OutcomeFailed, Detail: err.Error()}
	}

	outcome := s.sendAndRecord(ctx, requestID, row.Phone, row.Name, token, template)

	if stale && outcome.Outcome == OutcomeSent {
		if s.extendOnResend {
			err = s.store.ExtendRequestExpiry(ctx, requestID, s.validityDays)
		} else {
			err = s.store.RefreshRequestSentAt(ctx, requestID)
		}
		if err != nil {
			s.logger.WithError(err).WithField("requestId", requestID).Warn("Failed to restart staleness clock")
		}
	}

	return outcome
}

// sendAndRecord runs one send attempt and its bookkeeping: every attempt
// produces exactly one send-log entry, and a non-created status flips the
// request to failed in the same transaction as its log entry.
func (s *DispatchService) sendAndRecord(ctx context.Context, requestID int64, phone, name, token, template string) RecipientOutcome {
	res := s.sender.SendText(ctx, phone, name, token, template)

	body := res.Body
	if res.OK() {
		if err := s.store.LogSendAttempt(ctx, requestID, res.Status, &body); err != nil {
			s.logger.WithError(err).WithField("requestId", requestID).Error("Failed to log send attempt")
		}
		return RecipientOutcome{Phone: phone, RequestID: requestID, Outcome: OutcomeSent}
	}

	if err := s.store.RecordSendFailure(ctx, requestID, res.Status, &body); err != nil {
		s.logger.WithError(err).WithField("requestId", requestID).Error("Failed to record send failure")
	}
	return RecipientOutcome{Phone: phone, RequestID: requestID, Outcome: OutcomeFailed, Detail: body}
}

func (s *DispatchService) logPassResult(kind, campaign string, result *DispatchResult) {
	fields := logrus.Fields{
		"kind":      kind,
		"attempted": result.Attempted,
		"sent":      result.Sent,
		"skipped":   result.Skipped,
		"failed":    result.Failed,
	}
	if campaign != "" {
		fields["campaign"] = campaign
	}
	s.logger.WithFields(fields).Info("Dispatch pass finished")
}
