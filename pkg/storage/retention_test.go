package storage_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/mailclean/mailclean/pkg/config"
	"github.com/mailclean/mailclean/pkg/storage"
	"github.com/stretchr/testify/require"
)

func TestDoRetentionScan(t *testing.T) {
	ds := &storage.MockStore{}
	// Mockup some different aged results (num is in hours).
	ds.Results = []*storage.Result{
		mockResult(0),
		mockResult(1),
		mockResult(2),
		mockResult(4),
		mockResult(12),
		mockResult(24),
	}
	ds.On("RemoveResult", "r4h").Return(nil)
	ds.On("RemoveResult", "r12h").Return(nil)
	ds.On("RemoveResult", "r24h").Return(nil)

	// Test 4 hour retention.
	cfg := config.Storage{
		RetentionPeriod: 239 * time.Minute,
		RetentionSleep:  0,
	}
	shutdownChan := make(chan bool)
	rs := storage.NewRetentionScanner(cfg, ds, shutdownChan)
	require.NoError(t, rs.DoScan())

	ds.AssertNumberOfCalls(t, "RemoveResult", 3)
	ds.AssertNotCalled(t, "RemoveResult", "r0h")
	ds.AssertNotCalled(t, "RemoveResult", "r1h")
	ds.AssertNotCalled(t, "RemoveResult", "r2h")
	ds.AssertExpectations(t)
}

func TestRetentionDisabled(t *testing.T) {
	rs := storage.NewRetentionScanner(config.Storage{}, &storage.MockStore{}, make(chan bool))
	rs.Start()
	// Join returns immediately when disabled.
	rs.Join()
}

// mockResult makes a Result of a specific age.
func mockResult(ageHours int) *storage.Result {
	return &storage.Result{
		ID:   fmt.Sprintf("r%vh", ageHours),
		Date: time.Now().Add(time.Duration(ageHours*-1) * time.Hour),
	}
}
