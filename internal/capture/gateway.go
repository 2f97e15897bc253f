package capture

import "context"

// Subscription detaches a listener.
type Subscription interface {
	Remove()
}

// SubscriptionFunc adapts a func to Subscription.
type SubscriptionFunc func()

func (f SubscriptionFunc) Remove() { f() }

// Gateway is the OS capture-prevention API.
type Gateway interface {
	PreventCapture(ctx context.Context) error
	AllowCapture(ctx context.Context) error
	// AddScreenshotListener is only usable when
	// Capabilities.HasNativeScreenshotListener is set.
	AddScreenshotListener(fn func()) (Subscription, error)
	// AddRecordingListener is only usable when
	// Capabilities.HasRecordingStateListener is set.
	AddRecordingListener(fn func(recording bool)) (Subscription, error)
	Capabilities() Capabilities
}

// Lifecycle delivers app foreground/background transitions.
type Lifecycle interface {
	Subscribe(fn func(AppState)) Subscription
}
