package models

import "time"

// Request statuses persisted in habeas_requests. The endpoint additionally
// classifies lookups as not-found or expired, but those are never stored.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
	StatusFailed   = "failed"
	StatusRevoked  = "revoked"
)

// Decision values accepted on the public consent form.
const (
	DecisionAccept = "accept"
	DecisionReject = "reject"
)

// UpsertMode selects the conflict behavior of RequestDAO.UpsertPending.
type UpsertMode int

const (
	// UpsertSkipDuplicates leaves an existing (phone, campaign) row untouched.
	// Used by the initial bulk upload so in-flight or decided requests are
	// never clobbered.
	UpsertSkipDuplicates UpsertMode = iota
	// UpsertForceResend refreshes token, status and sent_at on conflict.
	// Used by the test send and the resend-pending action.
	UpsertForceResend
)

// Campaign groups consent requests for reporting.
type Campaign struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// LegalTermsVersion is an append-only legal text revision. The current
// version is the newest row whose valid_to is null or in the future.
type LegalTermsVersion struct {
	Version   string     `db:"version" json:"version"`
	Content   string     `db:"content" json:"content"`
	ValidFrom time.Time  `db:"valid_from" json:"validFrom"`
	ValidTo   *time.Time `db:"valid_to" json:"validTo,omitempty"`
}

// ConsentRequest is the central entity: one row per (phone, campaign),
// addressed from outside the system solely by its opaque token.
type ConsentRequest struct {
	ID           int64      `db:"id" json:"id"`
	Phone        string     `db:"phone" json:"phone"`
	Name         string     `db:"name" json:"name"`
	Token        string     `db:"token" json:"token"`
	Status       string     `db:"status" json:"status"`
	SentAt       time.Time  `db:"sent_at" json:"sentAt"`
	AcceptedAt   *time.Time `db:"accepted_at" json:"acceptedAt,omitempty"`
	ExpiresAt    time.Time  `db:"expires_at" json:"expiresAt"`
	TermsVersion string     `db:"terms_version" json:"termsVersion"`
	CampaignID   int64      `db:"campaign_id" json:"campaignId"`
	Language     string     `db:"language" json:"language"`
	IPAddress    *string    `db:"ip_address" json:"ipAddress,omitempty"`
	UserAgent    *string    `db:"user_agent" json:"userAgent,omitempty"`
	UpdatedAt    *time.Time `db:"updated_at" json:"-"`
}

// RequestWithTerms is a ConsentRequest joined with the legal text it was
// issued against, as resolved by token lookup.
type RequestWithTerms struct {
	ConsentRequest
	TermsContent *string `db:"terms_content" json:"termsContent,omitempty"`
}

// SendLogEntry is one append-only audit row per message-send attempt.
// ResponseStatus is nil when the attempt failed before reaching the provider.
type SendLogEntry struct {
	ID             int64     `db:"id" json:"id"`
	RequestID      int64     `db:"request_id" json:"requestId"`
	ResponseStatus *int      `db:"response_status" json:"responseStatus,omitempty"`
	ResponseBody   *string   `db:"response_body" json:"responseBody,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// UpsertParams carries everything needed to enroll a recipient as pending.
type UpsertParams struct {
	Phone        string
	Name         string
	Token        string
	ExpiresAt    time.Time
	TermsVersion string
	CampaignID   int64
	Language     string
}

// RequestFilter narrows reporting queries. Zero values mean "no filter".
type RequestFilter struct {
	Statuses []string
	DateFrom *time.Time
	DateTo   *time.Time
}

// Recipient is one row of a dispatch input list.
type Recipient struct {
	Phone    string `json:"phone" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Language string `json:"language"`
}

// RequestStats aggregates request counts for the operator dashboard.
type RequestStats struct {
	Total          int     `json:"total"`
	Pending        int     `json:"pending"`
	Accepted       int     `json:"accepted"`
	Rejected       int     `json:"rejected"`
	Failed         int     `json:"failed"`
	Revoked        int     `json:"revoked"`
	AcceptanceRate float64 `json:"acceptanceRate"`
}
