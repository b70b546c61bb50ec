package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func testEntry(club string, i int) AuditLogEntry {
	return AuditLogEntry{
		ClubID:     club,
		Action:     ActionUpdate,
		EntityType: "vip_session",
		EntityID:   fmt.Sprintf("session-%d", i),
		After:      json.RawMessage(fmt.Sprintf(`{"final_count":%d}`, i)),
		Summary:    "count updated",
	}
}

func TestAppend_RejectsInvalidEntries(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	if _, err := svc.Append(context.Background(), AuditLogEntry{Action: ActionCreate, EntityType: "x", EntityID: "1"}); !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry for missing club, got %v", err)
	}
	if _, err := svc.Append(context.Background(), AuditLogEntry{ClubID: "c", Action: "BOGUS", EntityType: "x", EntityID: "1"}); !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry for bad action, got %v", err)
	}
}

func TestAppend_ChainsEntriesAndVerifies(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	const n = 25
	for i := 0; i < n; i++ {
		e, err := svc.Append(ctx, testEntry("club-1", i))
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if e.CurrentHash == "" {
			t.Fatalf("append %d: missing current hash", i)
		}
		if i == 0 && e.PreviousHash != nil {
			t.Fatalf("first entry must have nil previous hash")
		}
		if i > 0 && e.PreviousHash == nil {
			t.Fatalf("entry %d: missing previous hash", i)
		}
	}

	v, err := svc.VerifyChain(ctx, "club-1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !v.IsValid || len(v.Issues) != 0 || v.TotalChecked != n {
		t.Fatalf("expected valid chain of %d, got %+v", n, v)
	}
}

func TestVerifyChain_ReportsTamperingAndKeepsScanning(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := svc.Append(ctx, testEntry("club-1", i)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	// Mutating entry 4's current hash breaks exactly the 4->5 link.
	repo.Tamper("club-1", 4, func(e *AuditLogEntry) { e.CurrentHash = "deadbeef" })

	v, err := svc.VerifyChain(ctx, "club-1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if v.IsValid {
		t.Fatalf("expected invalid chain")
	}
	if len(v.Issues) != 1 {
		t.Fatalf("expected exactly one issue, got %d", len(v.Issues))
	}
	if v.TotalChecked != 10 {
		t.Fatalf("scan must continue after the first issue, checked %d", v.TotalChecked)
	}
	if v.Issues[0].Expected != "deadbeef" {
		t.Fatalf("issue should report the found head as expected prev, got %+v", v.Issues[0])
	}
}

func TestVerifyChain_ReportsMutatedPreviousHash(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := svc.Append(ctx, testEntry("club-1", i)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	bogus := "0000"
	repo.Tamper("club-1", 2, func(e *AuditLogEntry) { e.PreviousHash = &bogus })

	v, err := svc.VerifyChain(ctx, "club-1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if v.IsValid || len(v.Issues) != 1 || v.Issues[0].Found != bogus {
		t.Fatalf("expected one issue at the mutated link, got %+v", v)
	}
}

func TestAppend_ConcurrentWritersNeverFork(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := svc.Append(ctx, testEntry("club-1", i)); err != nil {
				t.Errorf("append %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	v, err := svc.VerifyChain(ctx, "club-1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !v.IsValid || v.TotalChecked != writers {
		t.Fatalf("concurrent appends forked the chain: %+v", v)
	}
}

func TestAppend_IndependentTenantsHaveIndependentChains(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	a, err := svc.Append(ctx, testEntry("club-a", 0))
	if err != nil {
		t.Fatalf("append a: %v", err)
	}
	b, err := svc.Append(ctx, testEntry("club-b", 0))
	if err != nil {
		t.Fatalf("append b: %v", err)
	}
	if a.PreviousHash != nil || b.PreviousHash != nil {
		t.Fatalf("each tenant's first entry must start a fresh chain")
	}
}

func TestComputeHash_IsDeterministicAndPrevSensitive(t *testing.T) {
	e := testEntry("club-1", 1)
	e.CreatedAt = time.Date(2026, 8, 27, 3, 0, 0, 0, time.UTC)

	h1 := ComputeHash(e)
	h2 := ComputeHash(e)
	if h1 != h2 {
		t.Fatalf("hash must be deterministic")
	}

	prev := "abc"
	e.PreviousHash = &prev
	if ComputeHash(e) == h1 {
		t.Fatalf("hash must cover previous hash")
	}
}
