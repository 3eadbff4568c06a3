package network

import (
	"encoding/json"
	"fmt"
	"sort"
)

type requestWillBeSent struct {
	RequestID string  `json:"requestId"`
	Timestamp float64 `json:"timestamp"`
	Type      string  `json:"type"`
	Request   struct {
		URL    string `json:"url"`
		Method string `json:"method"`
	} `json:"request"`
	RedirectResponse *json.RawMessage `json:"redirectResponse"`
}

type responseReceived struct {
	RequestID string  `json:"requestId"`
	Timestamp float64 `json:"timestamp"`
	Type      string  `json:"type"`
	Response  struct {
		URL               string  `json:"url"`
		Status            int     `json:"status"`
		MimeType          string  `json:"mimeType"`
		EncodedDataLength float64 `json:"encodedDataLength"`
		Timing            *struct {
			PushStart float64 `json:"pushStart"`
			PushEnd   float64 `json:"pushEnd"`
		} `json:"timing"`
	} `json:"response"`
}

type dataReceived struct {
	RequestID         string  `json:"requestId"`
	Timestamp         float64 `json:"timestamp"`
	EncodedDataLength float64 `json:"encodedDataLength"`
}

type loadingFinished struct {
	RequestID         string  `json:"requestId"`
	Timestamp         float64 `json:"timestamp"`
	EncodedDataLength float64 `json:"encodedDataLength"`
}

type loadingFailed struct {
	RequestID string  `json:"requestId"`
	Timestamp float64 `json:"timestamp"`
	Type      string  `json:"type"`
	ErrorText string  `json:"errorText"`
}

// extractor accumulates records keyed by request id.
type extractor struct {
	records map[string]*Record
}

// Extract normalizes a protocol log into one record per request id, sorted by
// start time (ties by request id). Unknown methods are skipped; a known method
// whose params cannot be decoded fails the whole extraction.
func Extract(log []LogEntry) ([]Record, error) {
	x := &extractor{records: make(map[string]*Record)}

	for i, entry := range log {
		if err := x.apply(entry); err != nil {
			return nil, fmt.Errorf("%w: entry %d (%s): %v", ErrMalformedLog, i, entry.Method, err)
		}
	}

	out := make([]Record, 0, len(x.records))
	for _, r := range x.records {
		out = append(out, *r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].RequestID < out[j].RequestID
	})
	return out, nil
}

func (x *extractor) apply(entry LogEntry) error {
	switch entry.Method {
	case MethodRequestWillBeSent:
		var p requestWillBeSent
		if err := decode(entry.Params, &p); err != nil {
			return err
		}
		r, seen := x.get(p.RequestID, p.Timestamp)
		if seen && p.RedirectResponse != nil {
			r.Redirects++
		}
		if p.Timestamp < r.StartTime {
			r.StartTime = p.Timestamp
		}
		r.URL = p.Request.URL
		r.Method = p.Request.Method
		if p.Type != "" {
			r.ResourceType = p.Type
		}

	case MethodResponseReceived:
		var p responseReceived
		if err := decode(entry.Params, &p); err != nil {
			return err
		}
		r, _ := x.get(p.RequestID, p.Timestamp)
		r.ResponseTime = p.Timestamp
		r.StatusCode = p.Response.Status
		r.MimeType = p.Response.MimeType
		if p.Response.URL != "" {
			r.URL = p.Response.URL
		}
		if p.Type != "" {
			r.ResourceType = p.Type
		}
		if t := p.Response.Timing; t != nil && t.PushStart > 0 {
			r.Push = &PushTiming{Start: t.PushStart, End: t.PushEnd}
		}

	case MethodDataReceived:
		var p dataReceived
		if err := decode(entry.Params, &p); err != nil {
			return err
		}
		r, _ := x.get(p.RequestID, p.Timestamp)
		r.TransferSize += int64(p.EncodedDataLength)

	case MethodLoadingFinished:
		var p loadingFinished
		if err := decode(entry.Params, &p); err != nil {
			return err
		}
		r, _ := x.get(p.RequestID, p.Timestamp)
		r.EndTime = p.Timestamp
		if p.EncodedDataLength > 0 {
			r.TransferSize = int64(p.EncodedDataLength)
		}

	case MethodLoadingFailed:
		var p loadingFailed
		if err := decode(entry.Params, &p); err != nil {
			return err
		}
		r, _ := x.get(p.RequestID, p.Timestamp)
		r.EndTime = p.Timestamp
		r.Failed = true
		r.ErrorText = p.ErrorText
		if p.Type != "" && r.ResourceType == "" {
			r.ResourceType = p.Type
		}
	}
	return nil
}

// get returns the record for id, creating it when absent. A record first seen
// through a non-request message starts at that message's timestamp.
func (x *extractor) get(id string, ts float64) (*Record, bool) {
	if r, ok := x.records[id]; ok {
		return r, true
	}
	r := &Record{RequestID: id, StartTime: ts}
	x.records[id] = r
	return r, false
}

func decode(raw json.RawMessage, v interface{ requestID() string }) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing params")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return err
	}
	if v.requestID() == "" {
		return fmt.Errorf("missing requestId")
	}
	return nil
}

func (p *requestWillBeSent) requestID() string { return p.RequestID }
func (p *responseReceived) requestID() string  { return p.RequestID }
func (p *dataReceived) requestID() string      { return p.RequestID }
func (p *loadingFinished) requestID() string   { return p.RequestID }
func (p *loadingFailed) requestID() string     { return p.RequestID }
