package model

import (
	"time"
)

// JSONSanitizeOptionsV1 holds per-request option overrides, nil fields keep the server defaults.
type JSONSanitizeOptionsV1 struct {
	MaxContentSize           *int    `json:"max-content-size,omitempty"`
	SuppressLinks            *bool   `json:"suppress-links,omitempty"`
	DropExternalImages       *bool   `json:"drop-external-images,omitempty"`
	ReplaceURLs              *bool   `json:"replace-urls,omitempty"`
	CSSClassPrefix           *string `json:"css-class-prefix,omitempty"`
	ReplaceBodyWithContainer *bool   `json:"replace-body-with-container,omitempty"`
	CSSOnly                  *bool   `json:"css-only,omitempty"`
}

// JSONSanitizeRequestV1 is the body of a sanitize request.
type JSONSanitizeRequestV1 struct {
	HTML    string                 `json:"html"`
	Subject string                 `json:"subject,omitempty"`
	Options *JSONSanitizeOptionsV1 `json:"options,omitempty"`
}

// JSONEffectiveOptionsV1 lists the options a result was produced with.
type JSONEffectiveOptionsV1 struct {
	MaxContentSize           int    `json:"max-content-size"`
	SuppressLinks            bool   `json:"suppress-links"`
	DropExternalImages       bool   `json:"drop-external-images"`
	ReplaceURLs              bool   `json:"replace-urls"`
	CSSClassPrefix           string `json:"css-class-prefix"`
	ReplaceBodyWithContainer bool   `json:"replace-body-with-container"`
	CSSOnly                  bool   `json:"css-only"`
}

// JSONResultHeaderV1 contains the basic header data for a stored result.
type JSONResultHeaderV1 struct {
	ID               string    `json:"id"`
	Origin           string    `json:"origin"`
	Subject          string    `json:"subject"`
	From             string    `json:"from"`
	Date             time.Time `json:"date"`
	InputSize        int64     `json:"input-size"`
	Size             int64     `json:"size"`
	ImageURLRedacted bool      `json:"image-url-redacted"`
	SizeExceeded     bool      `json:"size-exceeded"`
}

// JSONResultV1 contains the same data as the header plus the sanitized document.
type JSONResultV1 struct {
	ID               string                  `json:"id"`
	Origin           string                  `json:"origin"`
	Subject          string                  `json:"subject"`
	From             string                  `json:"from"`
	Date             time.Time               `json:"date"`
	InputSize        int64                   `json:"input-size"`
	Size             int64                   `json:"size"`
	ImageURLRedacted bool                    `json:"image-url-redacted"`
	SizeExceeded     bool                    `json:"size-exceeded"`
	Options          *JSONEffectiveOptionsV1 `json:"options"`
	HTML             string                  `json:"html"`
	Text             string                  `json:"text"`
	HTMLLink         string                  `json:"html-link"`
}

// JSONPolicyV1 lists the active allow-list tables.  A nil attribute or value list allows any.
type JSONPolicyV1 struct {
	Tags            map[string][]string `json:"tags"`
	StyleProperties map[string][]string `json:"style-properties"`
}

// JSONMonitorEventV1 contains events for the result monitor.
type JSONMonitorEventV1 struct {
	// Event variant: `result-deleted`, `result-stored`.
	Variant string              `json:"variant"`
	Header  *JSONResultHeaderV1 `json:"header,omitempty"`
	ID      string              `json:"id,omitempty"`
}
