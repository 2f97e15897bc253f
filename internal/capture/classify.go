package capture

import "strings"

const (
	MethodScreenshotListener = "screenshot_listener"
	MethodAppStateActive     = "app_state_change_to_active"
	MethodRecordingListener  = "recording_state_listener"
)

// Classify decides whether an event is a recording, a real screenshot, or
// noise. Recording signals win. A screenshot reported by the foreground
// transition is ignored: every return to the app would otherwise look like a
// capture.
func Classify(method string, t EventType) Class {
	if isVideoRecording(method, t) {
		return ClassVideoRecording
	}
	if isRealScreenshot(method, t) {
		return ClassScreenshot
	}
	return ClassIgnored
}

func isVideoRecording(method string, t EventType) bool {
	if t == TypeVideoRecording || t == TypeSuspectedRecording {
		return true
	}
	return strings.Contains(method, "recording") || strings.Contains(method, "video")
}

func isRealScreenshot(method string, t EventType) bool {
	if method == MethodScreenshotListener && t == TypeScreenshot {
		return true
	}
	return t == TypeScreenshot && method != MethodAppStateActive
}
