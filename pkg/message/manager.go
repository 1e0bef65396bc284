package message

import (
	"expvar"
	"fmt"
	"html"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/jhillyerd/enmime/v2"
	"github.com/mailclean/mailclean/pkg/extension"
	"github.com/mailclean/mailclean/pkg/extension/event"
	"github.com/mailclean/mailclean/pkg/metric"
	"github.com/mailclean/mailclean/pkg/sanitize"
	"github.com/mailclean/mailclean/pkg/storage"
	"github.com/rs/zerolog/log"
)

var (
	expSanitizedTotal    = new(expvar.Int)
	expRedactedTotal     = new(expvar.Int)
	expSizeExceededTotal = new(expvar.Int)
)

func init() {
	m := expvar.NewMap("sanitize")
	metric.Track(m, "SanitizedTotal", expSanitizedTotal)
	metric.Track(m, "ImageRedactedTotal", expRedactedTotal)
	metric.Track(m, "SizeExceededTotal", expSizeExceededTotal)
}

// Manager is the interface controllers use to sanitize documents and access results.
type Manager interface {
	DefaultOptions() sanitize.Options
	Policy() *sanitize.Policy
	Sanitize(req *Request) (*storage.Result, error)
	SanitizeMessage(source io.Reader, o sanitize.Options) (*storage.Result, error)
	GetResult(id string) (*storage.Result, error)
	GetResults() ([]*storage.Result, error)
	RemoveResult(id string) error
}

// StoreManager is a Manager backed by the storage.Store.
type StoreManager struct {
	Sanitizer *sanitize.Sanitizer
	Defaults  sanitize.Options
	Store     storage.Store
	ExtHost   *extension.Host
}

var _ Manager = &StoreManager{}

// DefaultOptions returns the configured sanitizer options, requests override these.
func (s *StoreManager) DefaultOptions() sanitize.Options {
	return s.Defaults
}

// Policy returns the policy in use by the sanitizer.
func (s *StoreManager) Policy() *sanitize.Policy {
	return s.Sanitizer.Policy()
}

// Sanitize runs the request through the sanitizer and stores the result.  A BeforeSanitize
// listener may replace the request options.
func (s *StoreManager) Sanitize(req *Request) (*storage.Result, error) {
	opts := req.Options
	if s.ExtHost != nil {
		ev := &event.SanitizeRequest{
			Origin:  req.Origin,
			Subject: req.Subject,
			From:    req.From,
			Size:    int64(len(req.HTML)),
			Options: opts,
		}
		if override := s.ExtHost.Events.BeforeSanitize.Emit(ev); override != nil {
			opts = *override
		}
	}

	out, res, err := s.Sanitizer.HTML(strings.NewReader(req.HTML), opts)
	if err != nil {
		return nil, fmt.Errorf("sanitize %s: %w", req.Origin, err)
	}
	expSanitizedTotal.Add(1)
	if res.ImageURLRedacted {
		expRedactedTotal.Add(1)
	}
	if res.SizeExceeded {
		expSizeExceededTotal.Add(1)
	}

	result := &storage.Result{
		Origin:           req.Origin,
		Subject:          req.Subject,
		From:             req.From,
		Date:             time.Now(),
		InputSize:        int64(len(req.HTML)),
		HTML:             out,
		Text:             preview(out, req.Text),
		Options:          opts,
		ImageURLRedacted: res.ImageURLRedacted,
		SizeExceeded:     res.SizeExceeded,
	}
	id, err := s.Store.AddResult(result)
	if err != nil {
		return nil, err
	}
	result.ID = id

	log.Debug().Str("module", "message").Str("id", id).Str("origin", req.Origin).
		Int64("inputSize", result.InputSize).Int64("outputSize", result.Size()).
		Bool("imageRedacted", res.ImageURLRedacted).Bool("sizeExceeded", res.SizeExceeded).
		Msg("Sanitized document")

	if s.ExtHost != nil {
		meta := result.Metadata()
		s.ExtHost.Events.AfterResultStored.Emit(&meta)
	}

	return result, nil
}

// SanitizeMessage parses a raw RFC 5322 message and sanitizes its HTML body.  Messages without an
// HTML part have their text body sanitized as preformatted text.
func (s *StoreManager) SanitizeMessage(source io.Reader, o sanitize.Options) (*storage.Result, error) {
	env, err := enmime.ReadEnvelope(source)
	if err != nil {
		return nil, fmt.Errorf("read message: %w", err)
	}
	for _, perr := range env.Errors {
		log.Debug().Str("module", "message").Str("error", perr.Error()).Msg("MIME parse problem")
	}

	req := &Request{
		Origin:  event.OriginMessage,
		Subject: env.GetHeader("Subject"),
		HTML:    env.HTML,
		Text:    env.Text,
		Options: o,
	}
	if from, err := env.AddressList("From"); err == nil && len(from) > 0 {
		req.From = from[0]
	} else if raw := env.GetHeader("From"); raw != "" {
		req.From = &mail.Address{Address: raw}
	}
	if req.HTML == "" {
		req.HTML = "<pre>" + html.EscapeString(strings.TrimRight(env.Text, "\r\n")) + "</pre>"
	}

	return s.Sanitize(req)
}

// GetResult returns the identified result.
func (s *StoreManager) GetResult(id string) (*storage.Result, error) {
	return s.Store.GetResult(id)
}

// GetResults returns all stored results, oldest first.
func (s *StoreManager) GetResults() ([]*storage.Result, error) {
	return s.Store.GetResults()
}

// RemoveResult deletes the identified result.
func (s *StoreManager) RemoveResult(id string) error {
	log.Debug().Str("module", "message").Str("id", id).Msg("Removing result")
	return s.Store.RemoveResult(id)
}
