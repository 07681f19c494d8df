package jobs

import "time"

// FormAlertPayload is ID-based; the worker loads the form and the teacher
// from the database before sending, so stale copies never go out.
type FormAlertPayload struct {
	FormID    string `json:"formId"`
	RequestID string `json:"requestId,omitempty"`
}

// FormExportPayload asks the worker to snapshot every submitted form into
// a CSV object.
type FormExportPayload struct {
	RequestedBy string    `json:"requestedBy"`
	RequestedAt time.Time `json:"requestedAt"`
	RequestID   string    `json:"requestId,omitempty"`
}
