package pdfdoc

import (
	"testing"

	"github.com/rpgvault/ingest/internal/ingesterr"
)

func TestOpenEmptyBlob(t *testing.T) {
	_, err := Open(nil)
	if ingesterr.KindOf(err) != ingesterr.KindPDFEmpty {
		t.Fatalf("expected pdf_empty, got %v", err)
	}
}

func TestOpenGarbageBlob(t *testing.T) {
	_, err := Open([]byte("not a pdf at all"))
	if ingesterr.KindOf(err) != ingesterr.KindPDFUnreadable {
		t.Fatalf("expected pdf_unreadable, got %v", err)
	}
}

func TestUnescapePDFString(t *testing.T) {
	got := string(unescapePDFString([]byte(`Hello\040World\n`)))
	// \040 (octal) is not handled here, only \n \r \t passthrough-escapes;
	// confirm the simple escapes round-trip and unknown ones pass the
	// literal character through unchanged.
	want := "Hello040World\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDetectTablesFindsAlignedBlock(t *testing.T) {
	text := "Intro paragraph with no columns at all.\n" +
		"Level    XP    Proficiency\n" +
		"1        0     +2\n" +
		"2        300   +2\n" +
		"3        900   +2\n" +
		"Trailing prose continues here."
	tables := detectTables(text, 4)
	if len(tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(tables))
	}
	tbl := tables[0]
	if tbl.Page != 4 {
		t.Fatalf("expected page 4, got %d", tbl.Page)
	}
	if len(tbl.Headers) != 3 {
		t.Fatalf("expected 3 header columns, got %v", tbl.Headers)
	}
	if len(tbl.Rows) != 3 {
		t.Fatalf("expected 3 data rows, got %d", len(tbl.Rows))
	}
}

func TestDetectTablesEmptyForProseOnly(t *testing.T) {
	text := "Just a paragraph of ordinary prose.\nAnother line of prose.\nAnd one more line."
	tables := detectTables(text, 1)
	if len(tables) != 0 {
		t.Fatalf("expected no tables, got %d", len(tables))
	}
}

func TestNumWorkersPositive(t *testing.T) {
	if NumWorkers() < 1 {
		t.Fatal("expected at least 1 worker")
	}
}
