package domain

// Kind distinguishes the two MMS operations.
type Kind string

const (
	KindSend     Kind = "send"
	KindDownload Kind = "download"
)

// Valid reports whether k is a known operation kind.
func (k Kind) Valid() bool {
	return k == KindSend || k == KindDownload
}

// ResultCode is the terminal outcome of a dispatch, surfaced to the
// persistence store and the caller webhook.
type ResultCode string

const (
	ResultOK              ResultCode = "ok"
	ResultInvalidAPN      ResultCode = "invalid_apn"
	ResultUnableToConnect ResultCode = "unable_to_connect"
	ResultHTTPFailure     ResultCode = "http_failure"
	ResultUnspecified     ResultCode = "unspecified_error"
)

// Request identifies one send-or-download operation. It is immutable once
// built; exactly one RequestResult is produced per Request.
type Request struct {
	// TransactionID is the opaque reference the caller uses to track this
	// operation.
	TransactionID string

	Kind Kind

	// MessageID is the persisted message row this request operates on.
	MessageID int64

	// SubscriptionID selects the subscriber / network profile whose APN
	// settings apply.
	SubscriptionID string

	// Creator is the identity of the submitting application.
	Creator string

	// Payload is the encoded message body. Send only.
	Payload []byte

	// ContentURL is where the message body is fetched from. Download only;
	// sends go to the MMSC from the APN settings.
	ContentURL string

	// Overrides are per-request APN/transport configuration overrides,
	// merged over the subscriber's base settings.
	Overrides map[string]string

	// WebhookURL is where the terminal result is delivered. Empty means the
	// caller does not want a callback.
	WebhookURL string
}

// RequestResult is the terminal outcome of one Request.
type RequestResult struct {
	Code     ResultCode
	Response []byte
}
