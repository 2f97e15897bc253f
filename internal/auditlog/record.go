// Package auditlog is the HTTP client for the remote audit log endpoint
// (POST /api/logs) and the wire shape of the records it accepts.
package auditlog

import "encoding/json"

// Record is one audit log entry. Empty optional strings are sent as JSON null.
type Record struct {
	Action       string
	Resource     string
	ResourceID   string
	Description  string
	Metadata     map[string]any
	IsScreenshot bool
}

type wireRecord struct {
	Action       string         `json:"action"`
	Resource     *string        `json:"resource"`
	ResourceID   *string        `json:"resourceId"`
	Description  *string        `json:"description"`
	Metadata     map[string]any `json:"metadata"`
	IsScreenshot bool           `json:"isScreenshot"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	metadata := r.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return json.Marshal(wireRecord{
		Action:       r.Action,
		Resource:     nullable(r.Resource),
		ResourceID:   nullable(r.ResourceID),
		Description:  nullable(r.Description),
		Metadata:     metadata,
		IsScreenshot: r.IsScreenshot,
	})
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Record{
		Action:       w.Action,
		Resource:     deref(w.Resource),
		ResourceID:   deref(w.ResourceID),
		Description:  deref(w.Description),
		Metadata:     w.Metadata,
		IsScreenshot: w.IsScreenshot,
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
