package event

import (
	"net/mail"
	"time"

	"github.com/mailclean/mailclean/pkg/sanitize"
)

// Origins of a sanitize request.
const (
	OriginHTML    = "html"
	OriginMessage = "message"
)

// SanitizeRequest describes a document about to be sanitized.  Options holds the effective options
// after config defaults and request overrides have been merged.
type SanitizeRequest struct {
	Origin  string
	Subject string
	From    *mail.Address
	Size    int64
	Options sanitize.Options
}

// ResultMetadata contains the basic header data for a stored sanitize result.
type ResultMetadata struct {
	ID               string
	Origin           string
	Subject          string
	From             *mail.Address
	Date             time.Time
	InputSize        int64
	OutputSize       int64
	ImageURLRedacted bool
	SizeExceeded     bool
}
