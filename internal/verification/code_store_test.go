package verification

import (
	"testing"
	"time"
)

func TestCodeStoreIssueAndVerify(t *testing.T) {
	store := NewCodeStore(DefaultTTL)

	code, err := store.Issue(42)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("Issue() code length = %d, want 6", len(code))
	}

	if store.Verify(42, "000000") && code != "000000" {
		t.Error("Verify() accepted a wrong code")
	}
	if !store.Verify(42, code) {
		t.Error("Verify() rejected the issued code")
	}
	// Codes are single-use.
	if store.Verify(42, code) {
		t.Error("Verify() accepted an already-consumed code")
	}
}

func TestCodeStoreReissueReplaces(t *testing.T) {
	store := NewCodeStore(DefaultTTL)

	first, err := store.Issue(7)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	second, err := store.Issue(7)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if first != second && store.Verify(7, first) {
		t.Error("Verify() accepted a superseded code")
	}
	if !store.Verify(7, second) {
		t.Error("Verify() rejected the latest code")
	}
}

func TestCodeStoreExpiry(t *testing.T) {
	store := NewCodeStore(10 * time.Minute)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	code, err := store.Issue(1)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	now = now.Add(9 * time.Minute)
	if store.Len() != 1 {
		t.Fatal("code purged before its TTL elapsed")
	}

	now = now.Add(2 * time.Minute)
	if store.Verify(1, code) {
		t.Error("Verify() accepted an expired code")
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d after expiry, want 0", store.Len())
	}
}

func TestCodeStoreIsolatedPerExam(t *testing.T) {
	store := NewCodeStore(DefaultTTL)

	codeA, _ := store.Issue(1)
	codeB, _ := store.Issue(2)

	if !store.Verify(1, codeA) {
		t.Error("Verify() rejected the code for exam 1")
	}
	if !store.Verify(2, codeB) {
		t.Error("Verify() rejected the code for exam 2")
	}
	// Consuming exam 1's code must not touch exam 2's entry and vice versa.
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after both codes consumed", store.Len())
	}
}
