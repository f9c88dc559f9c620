package services

import (
	"context"
	"testing"
	"time"
)

func TestFormatIssueID(t *testing.T) {
	at := time.Date(2024, 1, 15, 23, 45, 0, 0, time.UTC)
	if got := FormatIssueID(at, 7); got != "UIR-20240115-0007" {
		t.Errorf("FormatIssueID = %q, want UIR-20240115-0007", got)
	}
	if got := FormatIssueID(at, 12345); got != "UIR-20240115-12345" {
		t.Errorf("sequence overflow: got %q, want UIR-20240115-12345", got)
	}

	// date segment is the UTC day, not the local one
	ist := time.FixedZone("IST", 5*3600+1800)
	local := time.Date(2024, 1, 16, 3, 30, 0, 0, ist) // still Jan 15 in UTC
	if got := FormatIssueID(local, 1); got != "UIR-20240115-0001" {
		t.Errorf("UTC date: got %q, want UIR-20240115-0001", got)
	}
}

func TestAllocateIssueIDIsIdempotent(t *testing.T) {
	f := newFixture()

	id, err := f.svc.allocateIssueID(context.Background(), "UIR-20240101-0042")
	if err != nil {
		t.Fatalf("allocateIssueID failed: %v", err)
	}
	if id != "UIR-20240101-0042" {
		t.Errorf("existing id was recomputed: %q", id)
	}
	if f.seq.calls != 0 {
		t.Errorf("sequencer consulted for an already-assigned id (%d calls)", f.seq.calls)
	}

	id, err = f.svc.allocateIssueID(context.Background(), "")
	if err != nil {
		t.Fatalf("allocateIssueID failed: %v", err)
	}
	if !issueIDPattern.MatchString(id) {
		t.Errorf("allocated id %q does not match the UIR pattern", id)
	}
	if f.seq.calls != 1 {
		t.Errorf("sequencer calls = %d, want 1", f.seq.calls)
	}
}
