package test

import (
	"errors"
	"io"
	"strconv"

	"github.com/mailclean/mailclean/pkg/message"
	"github.com/mailclean/mailclean/pkg/sanitize"
	"github.com/mailclean/mailclean/pkg/storage"
)

// ErrorSubject makes ManagerStub fail when sanitizing a request with this subject.
const ErrorSubject = "manager-error"

// ManagerStub is a test stub for message.Manager.  Results are kept in memory, documents are
// passed through the default sanitizer unchanged by extensions.
type ManagerStub struct {
	message.Manager
	Defaults sanitize.Options
	Requests []*message.Request // Requests seen by Sanitize.
	results  []*storage.Result
	last     int
}

// NewManager creates a new ManagerStub.
func NewManager() *ManagerStub {
	return &ManagerStub{}
}

// AddResult adds a result, assigning it the next ID.
func (m *ManagerStub) AddResult(r *storage.Result) string {
	m.last++
	r.ID = strconv.Itoa(m.last)
	m.results = append(m.results, r)
	return r.ID
}

// DefaultOptions returns Defaults.
func (m *ManagerStub) DefaultOptions() sanitize.Options {
	return m.Defaults
}

// Policy returns the default policy.
func (m *ManagerStub) Policy() *sanitize.Policy {
	return sanitize.DefaultPolicy()
}

// Sanitize records the request, sanitizes it and stores the result.
func (m *ManagerStub) Sanitize(req *message.Request) (*storage.Result, error) {
	m.Requests = append(m.Requests, req)
	if req.Subject == ErrorSubject {
		return nil, errors.New("internal error")
	}
	out, res, err := sanitize.HTML(req.HTML, req.Options)
	if err != nil {
		return nil, err
	}
	r := &storage.Result{
		Origin:           req.Origin,
		Subject:          req.Subject,
		From:             req.From,
		InputSize:        int64(len(req.HTML)),
		HTML:             out,
		Text:             req.Text,
		Options:          req.Options,
		ImageURLRedacted: res.ImageURLRedacted,
		SizeExceeded:     res.SizeExceeded,
	}
	m.AddResult(r)
	return r, nil
}

// SanitizeMessage wraps the raw source in a pre element and sanitizes it.
func (m *ManagerStub) SanitizeMessage(source io.Reader, o sanitize.Options) (*storage.Result, error) {
	b, err := io.ReadAll(source)
	if err != nil {
		return nil, err
	}
	return m.Sanitize(&message.Request{
		Origin:  "message",
		Subject: "raw",
		HTML:    "<pre>" + string(b) + "</pre>",
		Options: o,
	})
}

// GetResult gets a result by ID.
func (m *ManagerStub) GetResult(id string) (*storage.Result, error) {
	if id == storage.LatestID && len(m.results) > 0 {
		return m.results[len(m.results)-1], nil
	}
	for _, r := range m.results {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, storage.ErrNotExist
}

// GetResults returns all results.
func (m *ManagerStub) GetResults() ([]*storage.Result, error) {
	return m.results, nil
}

// RemoveResult deletes a result by ID.
func (m *ManagerStub) RemoveResult(id string) error {
	for i, r := range m.results {
		if r.ID == id {
			m.results = append(m.results[:i], m.results[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotExist
}
