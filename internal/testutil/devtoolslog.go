package testutil

import (
	"encoding/json"

	"github.com/sophialabs/perfaudit/internal/domain/network"
)

// LogEntry marshals params into a devtools log entry. It panics on
// unmarshalable params, which only happens with a broken test.
func LogEntry(method string, params any) network.LogEntry {
	raw, err := json.Marshal(params)
	if err != nil {
		panic(err)
	}
	return network.LogEntry{Method: method, Params: raw}
}

// PushLog is a small page load: a document, a pushed stylesheet that was
// redirected once, a pushed script, and a failed image. Entries interleave
// across requests the way the browser emits them.
func PushLog() []network.LogEntry {
	return []network.LogEntry{
		LogEntry(network.MethodRequestWillBeSent, map[string]any{
			"requestId": "1000.1", "timestamp": 10.0, "type": "Document",
			"request": map[string]any{"url": "https://example.com/", "method": "GET"},
		}),
		LogEntry(network.MethodRequestWillBeSent, map[string]any{
			"requestId": "1000.3", "timestamp": 10.2, "type": "Script",
			"request": map[string]any{"url": "https://example.com/app.js", "method": "GET"},
		}),
		LogEntry(network.MethodRequestWillBeSent, map[string]any{
			"requestId": "1000.2", "timestamp": 10.1, "type": "Stylesheet",
			"request": map[string]any{"url": "https://example.com/old.css", "method": "GET"},
		}),
		LogEntry(network.MethodResponseReceived, map[string]any{
			"requestId": "1000.1", "timestamp": 10.05, "type": "Document",
			"response": map[string]any{"url": "https://example.com/", "status": 200, "mimeType": "text/html"},
		}),
		LogEntry(network.MethodRequestWillBeSent, map[string]any{
			"requestId": "1000.2", "timestamp": 10.15, "type": "Stylesheet",
			"request":          map[string]any{"url": "https://example.com/main.css", "method": "GET"},
			"redirectResponse": map[string]any{"status": 301},
		}),
		LogEntry(network.MethodResponseReceived, map[string]any{
			"requestId": "1000.2", "timestamp": 10.16, "type": "Stylesheet",
			"response": map[string]any{
				"url": "https://example.com/main.css", "status": 200, "mimeType": "text/css",
				"timing": map[string]any{"requestTime": 10.1, "pushStart": 10.11, "pushEnd": 10.14},
			},
		}),
		LogEntry(network.MethodResponseReceived, map[string]any{
			"requestId": "1000.3", "timestamp": 10.25, "type": "Script",
			"response": map[string]any{
				"url": "https://example.com/app.js", "status": 200, "mimeType": "application/javascript",
				"timing": map[string]any{"requestTime": 10.2, "pushStart": 10.21, "pushEnd": 0},
			},
		}),
		LogEntry(network.MethodDataReceived, map[string]any{
			"requestId": "1000.1", "timestamp": 10.06, "dataLength": 4000, "encodedDataLength": 1200,
		}),
		LogEntry(network.MethodLoadingFinished, map[string]any{
			"requestId": "1000.1", "timestamp": 10.3, "encodedDataLength": 1500,
		}),
		LogEntry("Page.frameNavigated", map[string]any{"frame": map[string]any{"id": "0x1"}}),
		LogEntry(network.MethodRequestWillBeSent, map[string]any{
			"requestId": "1000.4", "timestamp": 10.2, "type": "Image",
			"request": map[string]any{"url": "https://example.com/missing.png", "method": "GET"},
		}),
		LogEntry(network.MethodResponseReceived, map[string]any{
			"requestId": "1000.4", "timestamp": 10.22, "type": "Image",
			"response": map[string]any{
				"url": "https://example.com/missing.png", "status": 404, "mimeType": "text/html",
				"timing": map[string]any{"requestTime": 10.2, "pushStart": 0},
			},
		}),
		LogEntry(network.MethodLoadingFailed, map[string]any{
			"requestId": "1000.4", "timestamp": 10.23, "type": "Image", "errorText": "net::ERR_ABORTED",
		}),
	}
}
