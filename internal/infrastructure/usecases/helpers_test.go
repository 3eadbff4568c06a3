package usecases_test

import (
	"context"
	"sync"
	"time"

	"github.com/sophialabs/perfaudit/internal/domain/artifact"
	"github.com/sophialabs/perfaudit/internal/domain/audit"
	"github.com/sophialabs/perfaudit/internal/domain/capture"
	"github.com/sophialabs/perfaudit/internal/domain/metric"
	"github.com/sophialabs/perfaudit/internal/infrastructure/usecases"
	"github.com/sophialabs/perfaudit/internal/testutil"
)

type mockRepo struct {
	mu       sync.Mutex
	captures []*capture.Capture
	err      error
	saved    []*capture.Capture
	deleted  []string
}

func (r *mockRepo) LoadAll(_ context.Context) ([]*capture.Capture, error) {
	return r.captures, r.err
}

func (r *mockRepo) LoadByID(_ context.Context, id string) (*capture.Capture, error) {
	for _, c := range r.captures {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, capture.ErrNotFound
}

func (r *mockRepo) Save(_ context.Context, c *capture.Capture) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, c)
	return nil
}

func (r *mockRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.captures {
		if c.ID == id {
			r.deleted = append(r.deleted, id)
			return nil
		}
	}
	return capture.ErrNotFound
}

var testTime = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func newCapture(id string, raw *artifact.RawArtifacts) *capture.Capture {
	return &capture.Capture{
		ID:     id,
		URL:    "https://" + id + ".example/",
		Passes: map[string]*artifact.RawArtifacts{raw.Pass(): raw},
	}
}

func pwaCapture() *capture.Capture {
	return newCapture("pwa", artifact.NewRawArtifacts("", testutil.ProgressiveAppTrace(), testutil.PushLog()))
}

func newRunAudits(history *audit.History) *usecases.RunAuditsUseCase {
	return usecases.NewRunAuditsUseCase(
		metric.DefaultCalibration(),
		nil,
		&testutil.FixedClock{T: testTime},
		&testutil.NoopLogger{},
		history,
	)
}
