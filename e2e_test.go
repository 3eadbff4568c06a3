package perfaudit_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sophialabs/perfaudit/internal/infrastructure/wiring"
	"github.com/sophialabs/perfaudit/internal/testutil"
)

// setupE2EServer serves a copy of ./testdata so imports and deletes leave the
// checked-in captures alone.
func setupE2EServer(t *testing.T) *httptest.Server {
	t.Helper()

	root := t.TempDir()
	copyTree(t, "./testdata/captures", filepath.Join(root, "captures"))

	c, err := wiring.New(wiring.Params{
		RootDir:        root,
		HistorySize:    50,
		CacheSize:      16,
		RateLimiterTTL: 10 * time.Minute,
		Logger:         &testutil.NoopLogger{},
	})
	if err != nil {
		t.Fatalf("failed to wire: %v", err)
	}
	t.Cleanup(c.Close)

	idx, err := c.LoadCapturesUseCase().Execute(t.Context())
	if err != nil {
		t.Fatalf("failed to load captures: %v", err)
	}
	c.Server().Rebuild(idx)

	ts := httptest.NewServer(c.Server())
	t.Cleanup(ts.Close)
	return ts
}

func copyTree(t *testing.T, src, dst string) {
	t.Helper()
	err := filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
	if err != nil {
		t.Fatalf("copy %s: %v", src, err)
	}
}

func getJSON(t *testing.T, url string, wantStatus int, out any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s: expected %d, got %d: %s", url, wantStatus, resp.StatusCode, body)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			t.Fatalf("GET %s: decode: %v", url, err)
		}
	}
}

type auditResult struct {
	RawValue         float64  `json:"rawValue"`
	Score            *float64 `json:"score"`
	ScoreDisplayMode string   `json:"scoreDisplayMode"`
	DisplayValue     string   `json:"displayValue"`
	DebugString      string   `json:"debugString"`
}

type report struct {
	CaptureID string                 `json:"captureId"`
	URL       string                 `json:"url"`
	Pass      string                 `json:"pass"`
	Audits    map[string]auditResult `json:"audits"`
}

func TestE2E_HealthCheck(t *testing.T) {
	ts := setupE2EServer(t)

	var body map[string]string
	getJSON(t, ts.URL+"/__admin/health", http.StatusOK, &body)
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %v", body["status"])
	}
}

func TestE2E_ListCaptures(t *testing.T) {
	ts := setupE2EServer(t)

	var captures []struct {
		ID     string `json:"id"`
		URL    string `json:"url"`
		Passes []struct {
			Name               string `json:"name"`
			TraceEvents        int    `json:"trace_events"`
			DevtoolsLogEntries int    `json:"devtools_log_entries"`
		} `json:"passes"`
	}
	getJSON(t, ts.URL+"/__admin/captures", http.StatusOK, &captures)

	if len(captures) != 2 || captures[0].ID != "no-fmp" || captures[1].ID != "pwa-rocks" {
		t.Fatalf("unexpected captures: %+v", captures)
	}
	pwa := captures[1]
	if len(pwa.Passes) != 1 || pwa.Passes[0].Name != "defaultPass" {
		t.Fatalf("unexpected passes: %+v", pwa.Passes)
	}
	if pwa.Passes[0].TraceEvents == 0 || pwa.Passes[0].DevtoolsLogEntries != 6 {
		t.Errorf("unexpected pass sizes: %+v", pwa.Passes[0])
	}
}

func TestE2E_ProgressiveAppReport(t *testing.T) {
	ts := setupE2EServer(t)

	var rep report
	getJSON(t, ts.URL+"/audits/pwa-rocks", http.StatusOK, &rep)

	if rep.CaptureID != "pwa-rocks" || rep.URL != "https://pwa.rocks/" || rep.Pass != "defaultPass" {
		t.Errorf("unexpected report header: %+v", rep)
	}
	fmp, ok := rep.Audits["first-meaningful-paint"]
	if !ok {
		t.Fatalf("missing first-meaningful-paint in %+v", rep.Audits)
	}
	if fmp.ScoreDisplayMode != "numeric" || fmp.Score == nil || *fmp.Score != 0.99 {
		t.Errorf("unexpected score: %+v", fmp)
	}
	if fmp.RawValue < 1099.52 || fmp.RawValue > 1099.53 {
		t.Errorf("expected rawValue 1099.523, got %v", fmp.RawValue)
	}
	if fmp.DisplayValue != "1,100\u00a0ms" {
		t.Errorf("unexpected displayValue %q", fmp.DisplayValue)
	}
	if fcp := rep.Audits["first-contentful-paint"]; fcp.ScoreDisplayMode != "numeric" {
		t.Errorf("expected a scored contentful paint, got %+v", fcp)
	}
}

func TestE2E_CandidatesOnlyCapture(t *testing.T) {
	ts := setupE2EServer(t)

	var fmp auditResult
	getJSON(t, ts.URL+"/audits/no-fmp/first-meaningful-paint", http.StatusOK, &fmp)

	if fmp.RawValue < 4460.92 || fmp.RawValue > 4460.93 {
		t.Errorf("expected the latest candidate (4460.928), got %v", fmp.RawValue)
	}
	if fmp.Score == nil || *fmp.Score != 0.42 {
		t.Errorf("expected score 0.42, got %+v", fmp)
	}
}

func TestE2E_Artifacts(t *testing.T) {
	ts := setupE2EServer(t)

	var records []map[string]any
	getJSON(t, ts.URL+"/artifacts/pwa-rocks/defaultPass/NetworkRecords", http.StatusOK, &records)
	if len(records) != 2 {
		t.Errorf("expected 2 network records, got %d", len(records))
	}

	var pushed []map[string]any
	getJSON(t, ts.URL+"/artifacts/pwa-rocks/defaultPass/PushedRequests", http.StatusOK, &pushed)
	if len(pushed) != 1 {
		t.Errorf("expected 1 pushed request, got %d", len(pushed))
	}

	getJSON(t, ts.URL+"/artifacts/no-fmp/defaultPass/NetworkRecords", http.StatusUnprocessableEntity, nil)
	getJSON(t, ts.URL+"/artifacts/pwa-rocks/defaultPass/Nope", http.StatusNotFound, nil)
}

func TestE2E_ImportAuditDelete(t *testing.T) {
	ts := setupE2EServer(t)

	body := `{
	  "id": "fresh",
	  "url": "https://fresh.example/",
	  "passes": {
	    "defaultPass": {
	      "trace": [
	        {"name": "TracingStartedInPage", "ph": "I", "ts": 900000, "pid": 1, "tid": 1, "args": {"data": {"page": "0x9"}}},
	        {"name": "navigationStart", "ph": "R", "ts": 1000000, "pid": 1, "tid": 1, "args": {"frame": "0x9"}},
	        {"name": "firstContentfulPaint", "ph": "R", "ts": 1250000, "pid": 1, "tid": 1, "args": {"frame": "0x9"}},
	        {"name": "firstMeaningfulPaint", "ph": "R", "ts": 1400000, "pid": 1, "tid": 1, "args": {"frame": "0x9"}}
	      ]
	    }
	  }
	}`
	resp, err := http.Post(ts.URL+"/__admin/captures", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("import: expected 201, got %d", resp.StatusCode)
	}

	var fcp auditResult
	getJSON(t, ts.URL+"/audits/fresh/first-contentful-paint", http.StatusOK, &fcp)
	if fcp.RawValue != 250 {
		t.Errorf("expected 250 ms, got %+v", fcp)
	}

	var history []map[string]any
	getJSON(t, ts.URL+"/__admin/history?capture=fresh", http.StatusOK, &history)
	if len(history) != 1 {
		t.Errorf("expected one history entry for the imported capture, got %d", len(history))
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/__admin/captures/fresh", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.StatusCode)
	}
	getJSON(t, ts.URL+"/audits/fresh", http.StatusNotFound, nil)
}
