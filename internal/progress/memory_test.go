// SPDX-License-Identifier: MPL-2.0

package progress

import (
	"context"
	"testing"
)

func TestMemoryStore_FirstSolveThenIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.RecordValidation(ctx, "alice", "chal-1", true)
	if err != nil {
		t.Fatalf("RecordValidation() error = %v", err)
	}
	if !first {
		t.Fatal("expected first call to report firstSolve = true")
	}

	solved, err := s.HasSolved(ctx, "alice", "chal-1")
	if err != nil {
		t.Fatalf("HasSolved() error = %v", err)
	}
	if !solved {
		t.Fatal("expected HasSolved to report true after a successful validation")
	}

	second, err := s.RecordValidation(ctx, "alice", "chal-1", true)
	if err != nil {
		t.Fatalf("RecordValidation() second call error = %v", err)
	}
	if second {
		t.Fatal("expected second successful validation to not report firstSolve again")
	}
}

func TestMemoryStore_FailedAttemptDoesNotSolve(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.RecordValidation(ctx, "bob", "chal-1", false)
	if err != nil {
		t.Fatalf("RecordValidation() error = %v", err)
	}
	if first {
		t.Fatal("expected a failed attempt to never report firstSolve")
	}

	solved, _ := s.HasSolved(ctx, "bob", "chal-1")
	if solved {
		t.Fatal("expected HasSolved to report false after a failed attempt")
	}
}

func TestMemoryStore_ConcurrentDuplicateValidationsOnlyOneWins(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	results := make(chan bool, 20)
	for i := 0; i < 20; i++ {
		go func() {
			first, _ := s.RecordValidation(ctx, "carol", "chal-1", true)
			results <- first
		}()
	}

	wins := 0
	for i := 0; i < 20; i++ {
		if <-results {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly 1 concurrent call to win firstSolve, got %d", wins)
	}
}
