package services_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sophialabs/perfaudit/internal/domain/capture"
	"github.com/sophialabs/perfaudit/internal/infrastructure/services"
)

func TestCaptureIndex_Lookup(t *testing.T) {
	idx := services.NewCaptureIndex()
	idx.Add(&capture.Capture{ID: "pwa-rocks", URL: "https://pwa.rocks/"})
	idx.Add(&capture.Capture{ID: "preact", URL: "https://preactjs.com/"})
	idx.Build()

	c, ok := idx.Lookup("pwa-rocks")
	if !ok {
		t.Fatal("expected pwa-rocks to be indexed")
	}
	if c.URL != "https://pwa.rocks/" {
		t.Errorf("URL = %q", c.URL)
	}

	if _, ok := idx.Lookup("missing"); ok {
		t.Error("expected lookup of unknown id to fail")
	}
}

func TestCaptureIndex_SortedIDs(t *testing.T) {
	idx := services.NewCaptureIndex()
	for _, id := range []string{"zeta", "alpha", "mid"} {
		idx.Add(&capture.Capture{ID: id})
	}
	idx.Build()

	want := []string{"alpha", "mid", "zeta"}
	if diff := cmp.Diff(want, idx.IDs()); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}

	var got []string
	for _, c := range idx.All() {
		got = append(got, c.ID)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("All mismatch (-want +got):\n%s", diff)
	}
}

func TestCaptureIndex_ReplaceSameID(t *testing.T) {
	idx := services.NewCaptureIndex()
	idx.Add(&capture.Capture{ID: "a", URL: "old"})
	idx.Add(&capture.Capture{ID: "a", URL: "new"})
	idx.Build()

	if idx.Len() != 1 {
		t.Fatalf("Len = %d, want 1", idx.Len())
	}
	c, _ := idx.Lookup("a")
	if c.URL != "new" {
		t.Errorf("URL = %q, want new", c.URL)
	}
}

func TestCaptureIndex_Empty(t *testing.T) {
	idx := services.NewCaptureIndex()
	idx.Build()
	if idx.Len() != 0 || len(idx.IDs()) != 0 || len(idx.All()) != 0 {
		t.Error("expected empty index")
	}
}
