package session

import (
	"sync"
	"testing"
	"time"

	"medexam/intake-portal/internal/domain"
)

func TestBeginCreateClaimsOnce(t *testing.T) {
	sess := newDraftSession("s1", "occ-1", domain.VariantOSCE)
	sess.SetIdentifyingFields("Jane Doe", "jane@x.com")

	var claims int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := sess.BeginCreate(); ok {
				mu.Lock()
				claims++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if claims != 1 {
		t.Fatalf("claims = %d, want exactly 1 in-flight creation", claims)
	}
	if sess.Draft().State != domain.LifecycleCreating {
		t.Fatalf("state = %v, want creating", sess.Draft().State)
	}
}

func TestRecordIDSetExactlyOnce(t *testing.T) {
	sess := newDraftSession("s1", "occ-1", domain.VariantOSCE)

	if _, ok := sess.BeginCreate(); !ok {
		t.Fatal("BeginCreate refused")
	}
	sess.FinishCreateSuccess("rec-1")
	if got := sess.RecordID(); got != "rec-1" {
		t.Fatalf("record id = %q", got)
	}

	// A second success must never reassign the id.
	sess.FinishCreateSuccess("rec-2")
	if got := sess.RecordID(); got != "rec-1" {
		t.Fatalf("record id reassigned to %q", got)
	}

	// And no further create can be claimed.
	if _, ok := sess.BeginCreate(); ok {
		t.Fatal("BeginCreate claimed after record existed")
	}
}

func TestFailureReleasesClaim(t *testing.T) {
	sess := newDraftSession("s1", "occ-1", domain.VariantOSCE)

	if _, ok := sess.BeginCreate(); !ok {
		t.Fatal("BeginCreate refused")
	}
	sess.FinishCreateFailure()

	if sess.Draft().State != domain.LifecycleNoRecord {
		t.Fatalf("state = %v, want no_record", sess.Draft().State)
	}
	if _, ok := sess.BeginCreate(); !ok {
		t.Fatal("claim not released after failure")
	}
}

func TestConflictLatch(t *testing.T) {
	sess := newDraftSession("s1", "occ-1", domain.VariantOSCE)
	sess.SetIdentifyingFields("Jane Doe", "jane@x.com")

	if _, ok := sess.BeginCreate(); !ok {
		t.Fatal("BeginCreate refused")
	}
	sess.FinishCreateConflict()

	if !sess.HasConflict() {
		t.Fatal("conflict not latched")
	}
	if _, ok := sess.BeginCreate(); ok {
		t.Fatal("create claimed while conflict latched")
	}

	// Re-entering the same email keeps the latch.
	sess.SetIdentifyingFields("Jane Doe", "jane@x.com")
	if _, ok := sess.BeginCreate(); ok {
		t.Fatal("create claimed for the conflicting email")
	}

	// A different email clears it.
	sess.SetIdentifyingFields("Jane Doe", "jane+2@x.com")
	if sess.HasConflict() {
		t.Fatal("conflict survived an email change")
	}
	if _, ok := sess.BeginCreate(); !ok {
		t.Fatal("create not possible after email change")
	}
}

func TestQueueFIFOAndHandoff(t *testing.T) {
	sess := newDraftSession("s1", "occ-1", domain.VariantAKT)

	for _, slot := range []string{"a", "b", "c"} {
		if !sess.EnqueueUpload(domain.PendingUpload{SlotID: slot, FileName: slot + ".pdf"}) {
			t.Fatalf("enqueue %s refused", slot)
		}
	}
	if sess.QueueLen() != 3 {
		t.Fatalf("queue len = %d", sess.QueueLen())
	}

	if _, ok := sess.BeginCreate(); !ok {
		t.Fatal("BeginCreate refused")
	}
	pending := sess.FinishCreateSuccess("rec-1")

	if len(pending) != 3 {
		t.Fatalf("handoff len = %d, want 3", len(pending))
	}
	for i, want := range []string{"a", "b", "c"} {
		if pending[i].SlotID != want {
			t.Fatalf("pending[%d] = %s, want %s (FIFO order)", i, pending[i].SlotID, want)
		}
	}
	if sess.QueueLen() != 0 {
		t.Fatal("queue not cleared by handoff")
	}

	// After the record exists, enqueue refuses: callers upload directly.
	if sess.EnqueueUpload(domain.PendingUpload{SlotID: "d"}) {
		t.Fatal("enqueue accepted after record existed")
	}
}

func TestEnqueueReplacesSameSlot(t *testing.T) {
	sess := newDraftSession("s1", "occ-1", domain.VariantOSCE)

	sess.EnqueueUpload(domain.PendingUpload{SlotID: "signature", FileName: "old.png"})
	sess.EnqueueUpload(domain.PendingUpload{SlotID: "photo", FileName: "photo.jpg"})
	sess.EnqueueUpload(domain.PendingUpload{SlotID: "signature", FileName: "new.png"})

	if _, ok := sess.BeginCreate(); !ok {
		t.Fatal("BeginCreate refused")
	}
	pending := sess.FinishCreateSuccess("rec-1")

	if len(pending) != 2 {
		t.Fatalf("pending len = %d, want 2 (replaced selection deduplicated)", len(pending))
	}
	if pending[0].SlotID != "photo" || pending[1].FileName != "new.png" {
		t.Fatalf("pending = %+v", pending)
	}
}

func TestClearSlotDropsQueuedEntry(t *testing.T) {
	sess := newDraftSession("s1", "occ-1", domain.VariantOSCE)

	sess.EnqueueUpload(domain.PendingUpload{SlotID: "signature", FileName: "sig.png", PreviewKey: "previews/sig"})
	sess.EnqueueUpload(domain.PendingUpload{SlotID: "photo", FileName: "photo.jpg"})

	remoteID, previewKey := sess.ClearSlot("signature")
	if remoteID != "" {
		t.Fatalf("remote id = %q for never-uploaded slot", remoteID)
	}
	_ = previewKey

	if sess.QueueLen() != 1 {
		t.Fatalf("queue len = %d, want 1 after clearing a queued slot", sess.QueueLen())
	}
}

func TestManagerLifecycle(t *testing.T) {
	var discarded []string
	var mu sync.Mutex
	mgr := NewManager(func(s *DraftSession) {
		mu.Lock()
		discarded = append(discarded, s.ID)
		mu.Unlock()
	})

	sess := mgr.Start("occ-1", domain.VariantOSCE)
	if got, ok := mgr.Get(sess.ID); !ok || got != sess {
		t.Fatal("session not retrievable")
	}

	mgr.Discard(sess.ID)
	if _, ok := mgr.Get(sess.ID); ok {
		t.Fatal("session retrievable after discard")
	}
	select {
	case <-sess.Context().Done():
	default:
		t.Fatal("session context not cancelled on discard")
	}
	mu.Lock()
	if len(discarded) != 1 || discarded[0] != sess.ID {
		t.Fatalf("discard hook calls = %v", discarded)
	}
	mu.Unlock()

	// Discarding twice is a no-op.
	mgr.Discard(sess.ID)
	mu.Lock()
	if len(discarded) != 1 {
		t.Fatal("discard hook ran twice")
	}
	mu.Unlock()
}

func TestSweepDiscardsIdleSessions(t *testing.T) {
	mgr := NewManager(nil)
	stale := mgr.Start("occ-1", domain.VariantOSCE)
	fresh := mgr.Start("occ-1", domain.VariantOSCE)

	stale.mu.Lock()
	stale.lastTouched = time.Now().Add(-2 * time.Hour)
	stale.mu.Unlock()

	if n := mgr.Sweep(time.Hour); n != 1 {
		t.Fatalf("swept = %d, want 1", n)
	}
	if _, ok := mgr.Get(stale.ID); ok {
		t.Fatal("stale session survived sweep")
	}
	if _, ok := mgr.Get(fresh.ID); !ok {
		t.Fatal("fresh session swept")
	}
}
