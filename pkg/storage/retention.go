package storage

import (
	"expvar"
	"sync"
	"time"

	"github.com/mailclean/mailclean/pkg/config"
	"github.com/mailclean/mailclean/pkg/metric"
	"github.com/rs/zerolog/log"
)

var (
	scanCompletedMu sync.RWMutex
	scanCompleted   time.Time

	expRetentionDeletesTotal = new(expvar.Int)
	expRetentionPeriod       = new(expvar.Int)
	expRetainedCurrent       = new(expvar.Int)
)

func init() {
	rm := expvar.NewMap("retention")
	rm.Set("ScanCompletedMillis", expvar.Func(getScanCompletedMillis))
	rm.Set("Period", expRetentionPeriod)
	metric.Track(rm, "DeletesTotal", expRetentionDeletesTotal)
	metric.Track(rm, "RetainedCurrent", expRetainedCurrent)
}

// RetentionScanner looks for results older than the configured retention period and deletes them.
type RetentionScanner struct {
	globalShutdown    chan bool // Closes when mailclean needs to shut down.
	retentionShutdown chan bool // Closed after the scanner has shut down.
	store             Store
	retentionPeriod   time.Duration
	retentionSleep    time.Duration
}

// NewRetentionScanner configures a new RententionScanner.
func NewRetentionScanner(
	cfg config.Storage,
	store Store,
	shutdownChannel chan bool,
) *RetentionScanner {
	rs := &RetentionScanner{
		globalShutdown:    shutdownChannel,
		retentionShutdown: make(chan bool),
		store:             store,
		retentionPeriod:   cfg.RetentionPeriod,
		retentionSleep:    cfg.RetentionSleep,
	}
	expRetentionPeriod.Set(int64(rs.retentionPeriod / time.Second))
	return rs
}

// Start up the retention scanner if retention period > 0.
func (rs *RetentionScanner) Start() {
	slog := log.With().Str("module", "storage").Logger()
	if rs.retentionPeriod <= 0 {
		slog.Info().Str("phase", "startup").Msg("Retention scanner disabled")
		close(rs.retentionShutdown)
		return
	}
	slog.Info().Str("phase", "startup").Msgf("Retention configured for %v", rs.retentionPeriod)
	go rs.run()
}

// run loops to kick off the scanner on the correct schedule.
func (rs *RetentionScanner) run() {
	slog := log.With().Str("module", "storage").Logger()
	start := time.Now()
retentionLoop:
	for {
		// Prevent scanner from starting more than once a minute.
		since := time.Since(start)
		if since < time.Minute {
			dur := time.Minute - since
			slog.Debug().Msgf("Retention scanner sleeping for %v", dur)
			select {
			case <-rs.globalShutdown:
				break retentionLoop
			case <-time.After(dur):
			}
		}
		// Kickoff scan.
		start = time.Now()
		if err := rs.DoScan(); err != nil {
			slog.Error().Err(err).Msg("Error during retention scan")
		}
		// Check for global shutdown.
		select {
		case <-rs.globalShutdown:
			break retentionLoop
		default:
		}
	}
	slog.Debug().Str("phase", "shutdown").Msg("Retention scanner shut down")
	close(rs.retentionShutdown)
}

// DoScan does a single pass of all results looking for ones that can be purged.
func (rs *RetentionScanner) DoScan() error {
	slog := log.With().Str("module", "storage").Logger()
	slog.Debug().Msg("Starting retention scan")
	cutoff := time.Now().Add(-1 * rs.retentionPeriod)
	retained := 0
	err := rs.store.VisitResults(func(results []*Result) bool {
		for _, r := range results {
			if r.Date.Before(cutoff) {
				slog.Debug().Str("id", r.ID).Msg("Purging expired result")
				if err := rs.store.RemoveResult(r.ID); err != nil {
					slog.Error().Str("id", r.ID).Err(err).Msg("Failed to purge result")
				} else {
					expRetentionDeletesTotal.Add(1)
				}
			} else {
				retained++
			}
		}
		select {
		case <-rs.globalShutdown:
			slog.Debug().Str("phase", "shutdown").Msg("Retention scan aborted due to shutdown")
			return false
		case <-time.After(rs.retentionSleep):
			// Give requests a chance at the store lock.
		}
		return true
	})
	if err != nil {
		return err
	}
	setScanCompleted(time.Now())
	expRetainedCurrent.Set(int64(retained))
	return nil
}

// Join does not return until the retention scanner has shut down.
func (rs *RetentionScanner) Join() {
	if rs.retentionShutdown != nil {
		<-rs.retentionShutdown
	}
}

func setScanCompleted(t time.Time) {
	scanCompletedMu.Lock()
	defer scanCompletedMu.Unlock()
	scanCompleted = t
}

func getScanCompletedMillis() any {
	scanCompletedMu.RLock()
	defer scanCompletedMu.RUnlock()
	if scanCompleted.IsZero() {
		return 0
	}
	return scanCompleted.UnixNano() / 1000000
}
