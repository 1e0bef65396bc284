package storage

import (
	"github.com/stretchr/testify/mock"
)

// MockStore is a shared mock for unit testing.
type MockStore struct {
	mock.Mock
	Results []*Result // Returned by VisitResults in a single batch.
}

var _ Store = &MockStore{}

// AddResult mock function.
func (m *MockStore) AddResult(r *Result) (string, error) {
	args := m.Called(r)
	return args.String(0), args.Error(1)
}

// GetResult mock function.
func (m *MockStore) GetResult(id string) (*Result, error) {
	args := m.Called(id)
	r, _ := args.Get(0).(*Result)
	return r, args.Error(1)
}

// GetResults mock function.
func (m *MockStore) GetResults() ([]*Result, error) {
	args := m.Called()
	rs, _ := args.Get(0).([]*Result)
	return rs, args.Error(1)
}

// RemoveResult mock function.
func (m *MockStore) RemoveResult(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

// VisitResults passes Results to f without recording a call.
func (m *MockStore) VisitResults(f func([]*Result) bool) error {
	f(m.Results)
	return nil
}
