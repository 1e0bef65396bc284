package msghub

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/mailclean/mailclean/pkg/extension"
	"github.com/mailclean/mailclean/pkg/extension/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testListener implements the Listener interface, mock for unit tests
type testListener struct {
	results    []*event.ResultMetadata // received results
	deletes    []string                // received deletes
	wantEvents int                     // how many events this listener wants to receive
	errorAfter int                     // when != 0, event count until Receive() begins returning error
	gotEvents  int

	done     chan struct{} // closed once we have received wantEvents
	overflow chan struct{} // closed if we receive wantEvents+1
}

func newTestListener(want int) *testListener {
	l := &testListener{
		results:    make([]*event.ResultMetadata, 0, want*2),
		deletes:    make([]string, 0, want*2),
		wantEvents: want,
		done:       make(chan struct{}),
		overflow:   make(chan struct{}),
	}
	if want == 0 {
		close(l.done)
	}
	return l
}

func (l *testListener) event() {
	l.gotEvents++
	if l.gotEvents == l.wantEvents {
		close(l.done)
	}
	if l.gotEvents == l.wantEvents+1 {
		close(l.overflow)
	}
}

// Receive a result, store it in the results slice, close applicable channels, and return an error
// if instructed
func (l *testListener) Receive(r event.ResultMetadata) error {
	l.results = append(l.results, &r)
	l.event()
	if l.errorAfter > 0 && l.gotEvents > l.errorAfter {
		return errors.New("too many results")
	}
	return nil
}

func (l *testListener) Delete(id string) error {
	l.deletes = append(l.deletes, id)
	l.event()
	return nil
}

// String formats the got vs wanted event counts
func (l *testListener) String() string {
	return fmt.Sprintf("got %v events, wanted %v", l.gotEvents, l.wantEvents)
}

func waitDone(t *testing.T, l *testListener) {
	t.Helper()
	select {
	case <-l.done:
	case <-time.After(time.Second):
		t.Fatal("Timeout:", l)
	}
}

func TestHubZeroLen(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := New(0, extension.NewHost())
	go hub.Start(ctx)
	for i := 0; i < 100; i++ {
		hub.Dispatch(event.ResultMetadata{})
	}
	hub.Delete("1")
	hub.Sync()
	// Ensures Hub doesn't panic
}

func TestHubOneListener(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := New(5, extension.NewHost())
	go hub.Start(ctx)
	l := newTestListener(1)

	hub.AddListener(l)
	hub.Dispatch(event.ResultMetadata{ID: "1"})
	waitDone(t, l)
}

func TestHubRemoveListener(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := New(5, extension.NewHost())
	go hub.Start(ctx)
	l := newTestListener(1)

	hub.AddListener(l)
	hub.Dispatch(event.ResultMetadata{})
	hub.RemoveListener(l)
	hub.Dispatch(event.ResultMetadata{})
	hub.Sync()

	select {
	case <-l.overflow:
		t.Error(l)
	case <-time.After(50 * time.Millisecond):
		// Expected result, no overflow
	}
}

func TestHubRemoveListenerOnError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := New(5, extension.NewHost())
	go hub.Start(ctx)

	// error after 1 means listener should receive 2 results before being removed
	l := newTestListener(2)
	l.errorAfter = 1

	hub.AddListener(l)
	for i := 0; i < 4; i++ {
		hub.Dispatch(event.ResultMetadata{})
	}
	hub.Sync()

	select {
	case <-l.overflow:
		t.Error(l)
	case <-time.After(50 * time.Millisecond):
		// Expected result, no overflow
	}
}

func TestHubHistoryReplay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := New(100, extension.NewHost())
	go hub.Start(ctx)
	l1 := newTestListener(3)
	hub.AddListener(l1)

	for i := 0; i < 3; i++ {
		hub.Dispatch(event.ResultMetadata{Subject: fmt.Sprintf("subj %v", i)})
	}
	waitDone(t, l1)

	// A new listener gets the history.
	l2 := newTestListener(3)
	hub.AddListener(l2)
	waitDone(t, l2)

	for i := 0; i < 3; i++ {
		assert.Equal(t, fmt.Sprintf("subj %v", i), l2.results[i].Subject)
	}
}

func TestHubHistoryDelete(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := New(100, extension.NewHost())
	go hub.Start(ctx)

	// Three results and one delete.
	l1 := newTestListener(4)
	hub.AddListener(l1)
	for i := 0; i < 3; i++ {
		hub.Dispatch(event.ResultMetadata{
			ID:      strconv.Itoa(i),
			Subject: fmt.Sprintf("subj %v", i),
		})
	}
	hub.Delete("1")
	waitDone(t, l1)
	assert.Equal(t, []string{"1"}, l1.deletes)

	l2 := newTestListener(2)
	hub.AddListener(l2)
	waitDone(t, l2)

	require.Len(t, l2.results, 2)
	assert.Equal(t, "subj 0", l2.results[0].Subject)
	assert.Equal(t, "subj 2", l2.results[1].Subject)
}

func TestHubHistoryReplayWrap(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := New(5, extension.NewHost())
	go hub.Start(ctx)

	for i := 0; i < 20; i++ {
		hub.Dispatch(event.ResultMetadata{Subject: fmt.Sprintf("subj %v", i)})
	}

	l := newTestListener(5)
	hub.AddListener(l)
	waitDone(t, l)

	for i := 0; i < 5; i++ {
		assert.Equal(t, fmt.Sprintf("subj %v", i+15), l.results[i].Subject)
	}
}

func TestHubHistoryKeepsLengthAfterDelete(t *testing.T) {
	bufferSize := 5
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := New(bufferSize, extension.NewHost())
	go hub.Start(ctx)

	for i := 0; i < 10; i++ {
		hub.Dispatch(event.ResultMetadata{ID: strconv.Itoa(i)})
	}
	hub.Delete("7")
	for i := 10; i < 20; i++ {
		hub.Dispatch(event.ResultMetadata{ID: strconv.Itoa(i)})
	}
	hub.Sync()

	l := newTestListener(bufferSize)
	hub.AddListener(l)
	waitDone(t, l)
	assert.Equal(t, bufferSize, hub.history.Len())
}

func TestHubExtensionEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	extHost := extension.NewHost()
	hub := New(5, extHost)
	go hub.Start(ctx)

	l := newTestListener(2)
	hub.AddListener(l)
	extHost.Events.AfterResultStored.Emit(&event.ResultMetadata{ID: "9", Subject: "stored"})
	extHost.Events.AfterResultDeleted.Emit(&event.ResultMetadata{ID: "9"})
	waitDone(t, l)

	// Async delivery, either order may arrive first.
	hub.Sync()
	if assert.Len(t, l.results, 1) {
		assert.Equal(t, "stored", l.results[0].Subject)
	}
	assert.Equal(t, []string{"9"}, l.deletes)
}
