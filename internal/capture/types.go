// Package capture keeps OS-level screen-capture prevention engaged across
// the app lifecycle and reports screenshot and screen-recording attempts to
// the audit log.
package capture

import "time"

// EventType is what the reporting source believes happened.
type EventType string

const (
	TypeScreenshot         EventType = "screenshot"
	TypeVideoRecording     EventType = "video_recording"
	TypeSuspectedRecording EventType = "suspected_recording"
	TypeUnknown            EventType = "unknown"
)

type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformOther   Platform = "other"
)

// AppState mirrors the host OS lifecycle states.
type AppState string

const (
	StateActive     AppState = "active"
	StateBackground AppState = "background"
	StateInactive   AppState = "inactive"
)

// Class is the classification every event receives before any network call.
type Class string

const (
	ClassVideoRecording Class = "video_recording"
	ClassScreenshot     Class = "screenshot"
	ClassIgnored        Class = "ignored"
)

// Details accompanies a LogCapture call.
type Details struct {
	Type EventType
}

// Event is the ephemeral description of one detection; it lives only for the
// duration of a log call.
type Event struct {
	Method    string
	Type      EventType
	Platform  Platform
	Timestamp time.Time
}

// Capabilities describes what the native layer offers. It is resolved once
// when the detector is built.
type Capabilities struct {
	Platform                    Platform
	HasNativeScreenshotListener bool
	HasRecordingStateListener   bool
}
