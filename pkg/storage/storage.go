// Package storage contains implementation independent result store logic
package storage

import (
	"errors"
	"net/mail"
	"time"

	"github.com/mailclean/mailclean/pkg/extension/event"
	"github.com/mailclean/mailclean/pkg/sanitize"
)

// LatestID may be passed to GetResult in place of a result ID.
const LatestID = "latest"

// ErrNotExist indicates the requested result does not exist.
var ErrNotExist = errors.New("result does not exist")

// Result is a sanitized document along with the data describing how it was produced.
type Result struct {
	ID               string
	Origin           string
	Subject          string
	From             *mail.Address
	Date             time.Time
	InputSize        int64
	HTML             string
	Text             string
	Options          sanitize.Options
	ImageURLRedacted bool
	SizeExceeded     bool
}

// Size returns the length of the sanitized HTML in bytes.
func (r *Result) Size() int64 {
	return int64(len(r.HTML))
}

// Metadata returns the event view of this result.
func (r *Result) Metadata() event.ResultMetadata {
	return event.ResultMetadata{
		ID:               r.ID,
		Origin:           r.Origin,
		Subject:          r.Subject,
		From:             r.From,
		Date:             r.Date,
		InputSize:        r.InputSize,
		OutputSize:       r.Size(),
		ImageURLRedacted: r.ImageURLRedacted,
		SizeExceeded:     r.SizeExceeded,
	}
}

// Store is the interface for storing sanitize results.
type Store interface {
	// AddResult stores the result and returns its newly assigned ID, r.ID is ignored.
	AddResult(r *Result) (string, error)
	// GetResult returns the identified result, or ErrNotExist.
	GetResult(id string) (*Result, error)
	// GetResults returns all results, oldest first.
	GetResults() ([]*Result, error)
	// RemoveResult deletes the identified result, or returns ErrNotExist.
	RemoveResult(id string) error
	// VisitResults calls f with successive batches of results, oldest first, until f returns
	// false.
	VisitResults(f func([]*Result) (cont bool)) error
}
