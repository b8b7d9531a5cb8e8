package ingesterr

import (
	"errors"
	"testing"
)

func TestExitCodes(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindCatalogMissing, 3},
		{KindPDFUnreadable, 4},
		{KindStoreUnreachable, 5},
		{KindRejectedDuplicate, 6},
		{KindCancelled, 130},
		{KindUploadTooLarge, 2},
		{"", 0},
	}
	for _, c := range cases {
		if got := c.kind.ExitCode(); got != c.want {
			t.Errorf("%s.ExitCode() = %d, want %d", c.kind, got, c.want)
		}
	}
}

func TestKindOf(t *testing.T) {
	wrapped := New(KindPDFEmpty, "upload", "file has zero pages", nil)
	if KindOf(wrapped) != KindPDFEmpty {
		t.Fatal("expected KindOf to extract the tagged kind")
	}
	if KindOf(errors.New("plain")) != "" {
		t.Fatal("expected KindOf to return empty kind for untagged error")
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	e := New(KindStoreUnreachable, "persisting", "retry later", cause)
	if !errors.Is(e, cause) {
		t.Fatal("expected errors.Is to see through Unwrap")
	}
}
