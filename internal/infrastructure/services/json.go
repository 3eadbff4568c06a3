package services

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sophialabs/perfaudit/internal/domain/artifact"
	"github.com/sophialabs/perfaudit/internal/domain/capture"
	"github.com/sophialabs/perfaudit/internal/domain/network"
	"github.com/sophialabs/perfaudit/internal/domain/trace"
)

// CaptureImport is the JSON body accepted when importing a capture.
type CaptureImport struct {
	ID     string                `json:"id"`
	URL    string                `json:"url"`
	Passes map[string]PassImport `json:"passes"`
}

// PassImport carries one pass inline. Trace accepts both the bare event
// array and the {"traceEvents": [...]} object.
type PassImport struct {
	Trace       trace.File         `json:"trace"`
	DevtoolsLog []network.LogEntry `json:"devtools_log"`
}

// DecodeCaptureImport reads an import body and builds a capture from it.
func DecodeCaptureImport(r io.Reader) (*capture.Capture, error) {
	var in CaptureImport
	if err := decodeJSON(r, &in); err != nil {
		return nil, fmt.Errorf("invalid capture JSON: %w", err)
	}
	if err := capture.ValidateID(in.ID); err != nil {
		return nil, err
	}
	if len(in.Passes) == 0 {
		return nil, fmt.Errorf("capture %q has no passes", in.ID)
	}

	c := &capture.Capture{
		ID:     in.ID,
		URL:    in.URL,
		Passes: make(map[string]*artifact.RawArtifacts, len(in.Passes)),
	}
	for name, p := range in.Passes {
		if len(p.Trace.Events) == 0 {
			return nil, fmt.Errorf("capture %q pass %q has no trace events", in.ID, name)
		}
		c.Passes[name] = artifact.NewRawArtifacts(name, p.Trace.Events, p.DevtoolsLog)
	}
	return c, nil
}

func decodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
