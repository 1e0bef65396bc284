package extension

import (
	"github.com/mailclean/mailclean/pkg/extension/event"
	"github.com/mailclean/mailclean/pkg/sanitize"
)

// Host defines extension points for mailclean.
type Host struct {
	Events *Events
}

// Events defines all the event types supported by the extension host.
//
// Before-events are processed synchronously, the first listener to respond with a non-nil value
// determines the response and the remaining listeners are not called.
//
// After-events are processed asynchronously with respect to the request that caused them.
type Events struct {
	AfterResultDeleted AsyncEventBroker[event.ResultMetadata]
	AfterResultStored  AsyncEventBroker[event.ResultMetadata]
	BeforeSanitize     EventBroker[event.SanitizeRequest, sanitize.Options]
}

// Void indicates the event emitter will ignore any value returned by listeners.
type Void struct{}

// NewHost creates a new extension host.
func NewHost() *Host {
	return &Host{Events: &Events{}}
}
