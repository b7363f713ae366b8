package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/habeasdata/consent-campaigns/internal/models"
	"github.com/habeasdata/consent-campaigns/internal/service"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// stubConsentStore holds one request addressable by token.
type stubConsentStore struct {
	request *models.RequestWithTerms
}

func (s *stubConsentStore) FindRequestByToken(ctx context.Context, token string) (*models.RequestWithTerms, error) {
	if s.request == nil || s.request.Token != token {
		return nil, models.ErrRequestNotFound
	}
	return s.request, nil
}

func (s *stubConsentStore) RecordDecision(ctx context.Context, requestID int64, status string, decidedAt time.Time, ip, userAgent string) error {
	s.request.Status = status
	return nil
}

func (s *stubConsentStore) RevokeRequest(ctx context.Context, requestID int64, revokedAt time.Time, ip, userAgent string) error {
	s.request.Status = models.StatusRevoked
	return nil
}

func pendingRequest() *models.RequestWithTerms {
	terms := "Texto legal vigente."
	return &models.RequestWithTerms{
		ConsentRequest: models.ConsentRequest{
			ID:           9,
			Phone:        "5551",
			Name:         "Ana",
			Token:        "tok-1",
			Status:       models.StatusPending,
			SentAt:       time.Now().Add(-time.Hour),
			ExpiresAt:    time.Now().AddDate(0, 0, 6),
			TermsVersion: "v1",
			CampaignID:   3,
			Language:     "es",
		},
		TermsContent: &terms,
	}
}

func consentTestRouter(store *stubConsentStore) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.LoadHTMLGlob("../../web/templates/*.html")

	handler := NewConsentHandler(service.NewConsentService(store, testLogger()), testLogger())
	router.GET("/auth/:token", handler.ShowConsent)
	router.POST("/auth/:token", handler.HandleConsent)
	router.POST("/auth/:token/revoke", handler.HandleRevoke)

	return router
}

func postForm(router *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestShowConsentRendersForm(t *testing.T) {
	router := consentTestRouter(&stubConsentStore{request: pendingRequest()})

	req := httptest.NewRequest(http.MethodGet, "/auth/tok-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Ana")
	assert.Contains(t, w.Body.String(), "Texto legal vigente.")
	assert.Contains(t, w.Body.String(), `name="terms_accepted"`)
}

func TestShowConsentUnknownToken(t *testing.T) {
	router := consentTestRouter(&stubConsentStore{})

	req := httptest.NewRequest(http.MethodGet, "/auth/missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "El enlace proporcionado no es válido.")
}

func TestShowConsentExpiredToken(t *testing.T) {
	request := pendingRequest()
	request.ExpiresAt = time.Now().Add(-time.Hour)
	router := consentTestRouter(&stubConsentStore{request: request})

	req := httptest.NewRequest(http.MethodGet, "/auth/tok-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusGone, w.Code)
	assert.Contains(t, w.Body.String(), "Enlace expirado")
}

func TestHandleConsentAccept(t *testing.T) {
	store := &stubConsentStore{request: pendingRequest()}
	router := consentTestRouter(store)

	w := postForm(router, "/auth/tok-1", url.Values{
		"decision":       {"accept"},
		"terms_accepted": {"true"},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Gracias")
	assert.Equal(t, models.StatusAccepted, store.request.Status)
}

func TestHandleConsentAcceptWithoutCheckbox(t *testing.T) {
	store := &stubConsentStore{request: pendingRequest()}
	router := consentTestRouter(store)

	w := postForm(router, "/auth/tok-1", url.Values{
		"decision": {"accept"},
	})

	// The form re-renders with the validation message; no state change.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Debes marcar la casilla")
	assert.Contains(t, w.Body.String(), `name="terms_accepted"`)
	assert.Equal(t, models.StatusPending, store.request.Status)
}

func TestHandleConsentReject(t *testing.T) {
	store := &stubConsentStore{request: pendingRequest()}
	router := consentTestRouter(store)

	w := postForm(router, "/auth/tok-1", url.Values{
		"decision": {"reject"},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusRejected, store.request.Status)
}

func TestHandleConsentMissingDecision(t *testing.T) {
	store := &stubConsentStore{request: pendingRequest()}
	router := consentTestRouter(store)

	w := postForm(router, "/auth/tok-1", url.Values{})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Selecciona una opción para continuar.")
	assert.Equal(t, models.StatusPending, store.request.Status)
}

func TestHandleConsentAlreadyAccepted(t *testing.T) {
	request := pendingRequest()
	request.Status = models.StatusAccepted
	router := consentTestRouter(&stubConsentStore{request: request})

	w := postForm(router, "/auth/tok-1", url.Values{
		"decision": {"reject"},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/auth/tok-1/revoke")
}

func TestHandleRevoke(t *testing.T) {
	request := pendingRequest()
	request.Status = models.StatusAccepted
	store := &stubConsentStore{request: request}
	router := consentTestRouter(store)

	w := postForm(router, "/auth/tok-1/revoke", url.Values{})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusRevoked, store.request.Status)
}

func TestHandleRevokeNotAccepted(t *testing.T) {
	store := &stubConsentStore{request: pendingRequest()}
	router := consentTestRouter(store)

	w := postForm(router, "/auth/tok-1/revoke", url.Values{})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, models.StatusPending, store.request.Status)
}
