package services

import (
	"context"
	"fmt"
	"time"
)

// Sequencer hands out the global running issue sequence number. The redis
// implementation is atomic across concurrent creations; the count-based
// fallback is not, and can repeat a number under concurrent inserts.
type Sequencer interface {
	Next(ctx context.Context) (int64, error)
}

// FormatIssueID renders the human-readable identifier UIR-YYYYMMDD-NNNN.
// The date segment is the UTC date at creation time and the sequence is a
// global running count zero-padded to four digits.
func FormatIssueID(now time.Time, seq int64) string {
	return fmt.Sprintf("UIR-%s-%04d", now.UTC().Format("20060102"), seq)
}

// allocateIssueID assigns an identifier if none is set yet. Idempotent: an
// existing identifier is never recomputed.
func (s *LifecycleService) allocateIssueID(ctx context.Context, issueID string) (string, error) {
	if issueID != "" {
		return issueID, nil
	}
	seq, err := s.seq.Next(ctx)
	if err != nil {
		return "", err
	}
	return FormatIssueID(s.now(), seq), nil
}
