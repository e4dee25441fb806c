// SPDX-License-Identifier: MPL-2.0

package session

import (
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		MaxPerUser:  1,
		MaxTotal:    2,
		IdleTimeout: time.Minute,
		MaxDuration: time.Hour,
	}
}

func TestAdmit_PerUserCap(t *testing.T) {
	m := NewManager(testConfig())

	if d := m.Admit("alice"); !d.Allowed {
		t.Fatalf("first admit for alice should be allowed, got %+v", d)
	}
	m.Create("alice", "chal-1", "container-1")

	if d := m.Admit("alice"); d.Allowed {
		t.Fatalf("second admit for alice should be denied, got %+v", d)
	}
}

func TestAdmit_TotalCap(t *testing.T) {
	m := NewManager(testConfig())

	m.Create("alice", "chal-1", "container-1")
	m.Create("bob", "chal-1", "container-2")

	if d := m.Admit("carol"); d.Allowed {
		t.Fatalf("admit over total cap should be denied, got %+v", d)
	}
}

func TestMarkPending_RejectsDuplicate(t *testing.T) {
	m := NewManager(testConfig())

	if !m.MarkPending("alice", "chal-1") {
		t.Fatal("first MarkPending should succeed")
	}
	if m.MarkPending("alice", "chal-1") {
		t.Fatal("second MarkPending for the same key should fail")
	}

	m.ClearPending("alice", "chal-1")
	if !m.MarkPending("alice", "chal-1") {
		t.Fatal("MarkPending should succeed again after ClearPending")
	}
}

func TestGet_NotFound(t *testing.T) {
	m := NewManager(testConfig())
	s := m.Create("alice", "chal-1", "container-1")
	m.End(s.ID)

	if _, err := m.Get(s.ID); err == nil {
		t.Fatal("expected error from Get on a deleted session")
	}
}

func TestUpdateActivity_AdvancesTimestamp(t *testing.T) {
	m := NewManager(testConfig())
	s := m.Create("alice", "chal-1", "container-1")

	before := s.LastActivity
	m.now = func() time.Time { return before.Add(5 * time.Second) }
	m.UpdateActivity(s.ID)

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.LastActivity.After(before) {
		t.Fatalf("LastActivity = %v, want after %v", got.LastActivity, before)
	}
}

func TestListExpired_IdleAndAbsoluteTimeout(t *testing.T) {
	m := NewManager(testConfig())
	s1 := m.Create("alice", "chal-1", "container-1")
	s2 := m.Create("bob", "chal-1", "container-2")

	future := s1.CreatedAt.Add(2 * time.Minute)
	m.now = func() time.Time { return future }

	expired := m.ListExpired()
	if len(expired) != 2 {
		t.Fatalf("ListExpired() returned %d sessions, want 2", len(expired))
	}

	ids := map[ID]bool{s1.ID: true, s2.ID: true}
	for _, s := range expired {
		if !ids[s.ID] {
			t.Errorf("unexpected session %v in expired list", s.ID)
		}
	}

	late := s1.ExpiresAt.Add(time.Second)
	m.now = func() time.Time { return late }
	m.UpdateActivity(s1.ID)
	m.UpdateActivity(s2.ID)
	if got := m.ListExpired(); len(got) != 2 {
		t.Fatalf("ListExpired() after absolute timeout returned %d sessions, want 2", len(got))
	}
}

func TestEnd_IsIdempotent(t *testing.T) {
	m := NewManager(testConfig())
	s := m.Create("alice", "chal-1", "container-1")

	if _, err := m.End(s.ID); err != nil {
		t.Fatalf("first End() error = %v", err)
	}
	if _, err := m.End(s.ID); err != ErrNotFound {
		t.Fatalf("second End() error = %v, want ErrNotFound", err)
	}
}

func TestFindActiveForChallenge(t *testing.T) {
	m := NewManager(testConfig())
	created := m.Create("alice", "chal-1", "container-1")

	found, ok := m.FindActiveForChallenge("alice", "chal-1")
	if !ok {
		t.Fatal("expected to find active session")
	}
	if found.ID != created.ID {
		t.Errorf("found session %v, want %v", found.ID, created.ID)
	}

	if _, ok := m.FindActiveForChallenge("alice", "chal-2"); ok {
		t.Fatal("should not find session for a different challenge")
	}
}
