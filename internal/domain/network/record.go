package network

import (
	"encoding/json"
	"errors"
)

// ErrMalformedLog is returned when a known protocol message cannot be decoded.
var ErrMalformedLog = errors.New("malformed devtools log")

// Protocol methods the extractor understands.
const (
	MethodRequestWillBeSent = "Network.requestWillBeSent"
	MethodResponseReceived  = "Network.responseReceived"
	MethodDataReceived      = "Network.dataReceived"
	MethodLoadingFinished   = "Network.loadingFinished"
	MethodLoadingFailed     = "Network.loadingFailed"
)

// LogEntry is one protocol message from the devtools log.
type LogEntry struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// PushTiming is present only for server-pushed resources. Times are in
// monotonic seconds.
type PushTiming struct {
	Start float64 `json:"start"`
	End   float64 `json:"end,omitempty"`
}

// Record is one network request, merged from every log entry sharing its
// request id. Times are in monotonic seconds.
type Record struct {
	RequestID    string      `json:"requestId"`
	URL          string      `json:"url"`
	Method       string      `json:"method,omitempty"`
	ResourceType string      `json:"resourceType,omitempty"`
	MimeType     string      `json:"mimeType,omitempty"`
	StatusCode   int         `json:"statusCode,omitempty"`
	StartTime    float64     `json:"startTime"`
	ResponseTime float64     `json:"responseReceivedTime,omitempty"`
	EndTime      float64     `json:"endTime,omitempty"`
	TransferSize int64       `json:"transferSize"`
	Failed       bool        `json:"failed,omitempty"`
	ErrorText    string      `json:"errorText,omitempty"`
	Redirects    int         `json:"redirects,omitempty"`
	Push         *PushTiming `json:"push,omitempty"`
}

// Pushed reports whether the resource was server-pushed.
func (r Record) Pushed() bool {
	return r.Push != nil
}
