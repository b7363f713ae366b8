package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/habeasdata/consent-campaigns/internal/models"
)

// Classification is the endpoint's view of a token lookup. NotFound and
// Expired are response classifications only; they are never persisted.
type Classification string

const (
	ClassNotFound        Classification = "not_found"
	ClassExpired         Classification = "expired"
	ClassOpen            Classification = "open"
	ClassAlreadyAccepted Classification = "already_accepted"
	ClassAlreadyRejected Classification = "already_rejected"
	ClassRevoked         Classification = "revoked"
)

// Resolution is the result of resolving a token.
type Resolution struct {
	Class   Classification
	Request *models.RequestWithTerms
}

// DecideResult is the result of processing a consent decision. Exactly one
// of the cases applies: a pre-empting resolution (not found, expired or
// already decided), a validation failure re-rendering the form, or the
// newly recorded status.
type DecideResult struct {
	Resolution      *Resolution
	ValidationError string
	NewStatus       string
}

// ConsentStore is the slice of the consent store the capture endpoint needs.
type ConsentStore interface {
	FindRequestByToken(ctx context.Context, token string) (*models.RequestWithTerms, error)
	RecordDecision(ctx context.Context, requestID int64, status string, decidedAt time.Time, ip, userAgent string) error
	RevokeRequest(ctx context.Context, requestID int64, revokedAt time.Time, ip, userAgent string) error
}

// ConsentService implements the consent capture state machine. It never
// creates requests, only transitions ones the dispatch workflow enrolled.
type ConsentService struct {
	store  ConsentStore
	now    func() time.Time
	logger *logrus.Logger
}

// NewConsentService creates a new consent service instance
func NewConsentService(store ConsentStore, logger *logrus.Logger) *ConsentService {
	return &ConsentService{
		store:  store,
		now:    time.Now,
		logger: logger,
	}
}

// Resolve classifies a token for the read path. Expiration pre-empts the
// persisted status: an expired link renders as expired even if already
// decided.
func (s *ConsentService) Resolve(ctx context.Context, token string) (*Resolution, error) {
	request, err := s.store.FindRequestByToken(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrRequestNotFound) {
			return &Resolution{Class: ClassNotFound}, nil
		}
		return nil, err
	}

	if s.now().After(request.ExpiresAt) {
		return &Resolution{Class: ClassExpired, Request: request}, nil
	}

	switch request.Status {
	case models.StatusAccepted:
		return &Resolution{Class: ClassAlreadyAccepted, Request: request}, nil
	case models.StatusRejected:
		return &Resolution{Class: ClassAlreadyRejected, Request: request}, nil
	case models.StatusRevoked:
		return &Resolution{Class: ClassRevoked, Request: request}, nil
	default:
		// pending and failed are both open for decision capture.
		return &Resolution{Class: ClassOpen, Request: request}, nil
	}
}

// Decide processes the write path. The token is re-resolved so a link that
// expired between page load and submit is rejected at submit time too.
// Accepting requires the terms checkbox; a missing checkbox re-renders the
// form with no state change. The decision itself is one atomic, guarded
// update.
func (s *ConsentService) Decide(ctx context.Context, token, decision string, termsAccepted bool, ip, userAgent string) (*DecideResult, error) {
	resolution, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	if resolution.Class != ClassOpen {
		return &DecideResult{Resolution: resolution}, nil
	}

	if decision == models.DecisionAccept && !termsAccepted {
		return &DecideResult{
			Resolution:      resolution,
			ValidationError: "Debes marcar la casilla para aceptar los términos.",
		}, nil
	}

	newStatus := models.StatusRejected
	if decision == models.DecisionAccept {
		newStatus = models.StatusAccepted
	}

	err = s.store.RecordDecision(ctx, resolution.Request.ID, newStatus, s.now(), ip, userAgent)
	if err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			// Lost a double-submit race: the row was decided between the
			// resolve and the write. Report the state that won.
			s.logger.WithField("requestId", resolution.Request.ID).Info("Decision lost a concurrent submit")
			refreshed, rerr := s.Resolve(ctx, token)
			if rerr != nil {
				return nil, rerr
			}
			return &DecideResult{Resolution: refreshed}, nil
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"requestId": resolution.Request.ID,
		"status":    newStatus,
	}).Info("Consent decision recorded")

	return &DecideResult{Resolution: resolution, NewStatus: newStatus}, nil
}

// Revoke transitions an accepted request to the terminal revoked state.
// Revocation is a distinct state rather than a reset to pending, so an old
// token is never silently re-armed.
func (s *ConsentService) Revoke(ctx context.Context, token, ip, userAgent string) (*DecideResult, error) {
	resolution, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	if resolution.Class != ClassAlreadyAccepted {
		return &DecideResult{Resolution: resolution}, nil
	}

	err = s.store.RevokeRequest(ctx, resolution.Request.ID, s.now(), ip, userAgent)
	if err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			refreshed, rerr := s.Resolve(ctx, token)
			if rerr != nil {
				return nil, rerr
			}
			return &DecideResult{Resolution: refreshed}, nil
		}
		return nil, err
	}

	s.logger.WithField("requestId", resolution.Request.ID).Info("Consent revoked")

	return &DecideResult{Resolution: resolution, NewStatus: models.StatusRevoked}, nil
}
