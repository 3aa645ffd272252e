package session

import (
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/seguekit/segue/internal/dispatcher"
	"github.com/seguekit/segue/internal/engine"
	"github.com/seguekit/segue/internal/scheduler"
	"github.com/seguekit/segue/internal/source"
	"github.com/seguekit/segue/internal/state"
	"github.com/seguekit/segue/internal/status"
)

// recorder captures notifications delivered through a direct executor.
type recorder struct {
	mu    sync.Mutex
	notes []dispatcher.Notification
}

func (r *recorder) listen(n dispatcher.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) all() []dispatcher.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]dispatcher.Notification(nil), r.notes...)
}

func (r *recorder) completions() []dispatcher.CallCompleted {
	var out []dispatcher.CallCompleted
	for _, n := range r.all() {
		if c, ok := n.(dispatcher.CallCompleted); ok {
			out = append(out, c)
		}
	}
	return out
}

func (r *recorder) itemChanges() []dispatcher.CurrentItemChanged {
	var out []dispatcher.CurrentItemChanged
	for _, n := range r.all() {
		if c, ok := n.(dispatcher.CurrentItemChanged); ok {
			out = append(out, c)
		}
	}
	return out
}

func newSession(t *testing.T) (Service, *recorder, *[]*engine.Mock) {
	t.Helper()
	engines := &[]*engine.Mock{}
	svc := New(engine.MockFactory(engines), Options{})
	rec := &recorder{}
	svc.Register(rec.listen, dispatcher.Direct())
	return svc, rec, engines
}

// lastEngine returns the most recently created mock.
func lastEngine(t *testing.T, engines *[]*engine.Mock) *engine.Mock {
	t.Helper()
	if len(*engines) == 0 {
		t.Fatal("no engine was created")
	}
	return (*engines)[len(*engines)-1]
}

func TestSession_SetItemPreparePlay_FullPath(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		svc, rec, engines := newSession(t)
		defer svc.Close()

		svc.SetItem(engine.Item{URI: "/a.mp3"})
		svc.Prepare()
		synctest.Wait()

		// SetItem completed; Prepare is parked waiting for the engine.
		comps := rec.completions()
		if len(comps) != 1 || comps[0].Call != scheduler.CallSetItem || comps[0].Status != status.OK {
			t.Fatalf("completions = %v, want [SetItem/OK]", comps)
		}

		m := lastEngine(t, engines)
		if m.PrepareCalls != 1 {
			t.Fatalf("PrepareCalls = %d, want 1", m.PrepareCalls)
		}
		m.FirePrepared()
		synctest.Wait()

		comps = rec.completions()
		if len(comps) != 2 || comps[1].Call != scheduler.CallPrepare || comps[1].Status != status.OK {
			t.Fatalf("completions = %v, want prepare OK second", comps)
		}
		if comps[1].Item.URI != "/a.mp3" {
			t.Errorf("completion item = %q, want /a.mp3", comps[1].Item.URI)
		}

		svc.Play()
		synctest.Wait()
		if m.StartCalls != 1 {
			t.Errorf("StartCalls = %d, want 1", m.StartCalls)
		}
		if svc.State() != source.Playing {
			t.Errorf("State() = %v, want Playing", svc.State())
		}
	})
}

func TestSession_CommandsBehindWaitingPrepareQueueUp(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		svc, rec, engines := newSession(t)
		defer svc.Close()

		svc.SetItem(engine.Item{URI: "/a.mp3"})
		svc.Prepare()
		svc.Play()
		synctest.Wait()

		m := lastEngine(t, engines)
		if m.StartCalls != 0 {
			t.Fatal("play must not run while prepare is waiting")
		}

		m.FirePrepared()
		synctest.Wait()

		if m.StartCalls != 1 {
			t.Errorf("StartCalls = %d, want 1 after prepare resolved", m.StartCalls)
		}
		comps := rec.completions()
		if len(comps) != 3 {
			t.Fatalf("completions = %d, want 3", len(comps))
		}
		want := []scheduler.Call{scheduler.CallSetItem, scheduler.CallPrepare, scheduler.CallPlay}
		for i, c := range want {
			if comps[i].Call != c {
				t.Errorf("completions[%d] = %v, want %v", i, comps[i].Call, c)
			}
		}
	})
}

func TestSession_SeekCoalescing_EndToEnd(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		svc, rec, engines := newSession(t)
		defer svc.Close()

		svc.SetItem(engine.Item{URI: "/a.mp3"})
		svc.Prepare()
		synctest.Wait()
		m := lastEngine(t, engines)
		m.FirePrepared()
		svc.Play()
		synctest.Wait()

		// The first seek begins executing and waits for SeekComplete;
		// the two behind it coalesce down to the last one.
		svc.SeekTo(10*time.Second, engine.SeekClosest)
		svc.SeekTo(20*time.Second, engine.SeekClosest)
		svc.SeekTo(30*time.Second, engine.SeekClosest)
		synctest.Wait()

		if len(m.SeekCalls) != 1 || m.SeekCalls[0] != 10*time.Second {
			t.Fatalf("SeekCalls = %v, want [10s] while the first seek waits", m.SeekCalls)
		}
		m.FireSeekComplete(10 * time.Second)
		synctest.Wait()
		m.FireSeekComplete(30 * time.Second)
		synctest.Wait()

		if len(m.SeekCalls) != 2 || m.SeekCalls[1] != 30*time.Second {
			t.Fatalf("SeekCalls = %v, want [10s 30s] (20s coalesced)", m.SeekCalls)
		}

		var seekCodes []status.Code
		for _, c := range rec.completions() {
			if c.Call == scheduler.CallSeekTo {
				seekCodes = append(seekCodes, c.Status)
			}
		}
		want := []status.Code{status.OK, status.Skipped, status.OK}
		if len(seekCodes) != len(want) {
			t.Fatalf("seek completions = %v, want %v", seekCodes, want)
		}
		for i := range want {
			if seekCodes[i] != want[i] {
				t.Errorf("seekCodes[%d] = %v, want %v", i, seekCodes[i], want[i])
			}
		}
	})
}

func TestSession_GaplessTransition(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		svc, rec, engines := newSession(t)
		defer svc.Close()

		svc.SetItem(engine.Item{URI: "/a.mp3"})
		svc.Prepare()
		synctest.Wait()
		cur := lastEngine(t, engines)
		cur.FirePrepared()
		svc.Play()
		svc.SetNextItem(engine.Item{URI: "/b.mp3"})
		synctest.Wait()

		next := lastEngine(t, engines)
		if next == cur {
			t.Fatal("no engine was created for the next item")
		}
		next.FirePrepared()
		synctest.Wait()

		if cur.NextEngine != next {
			t.Fatal("the prepared next engine should be armed on the current one")
		}

		cur.FireCompletion()
		next.FireStartedAsNext()
		synctest.Wait()

		changes := rec.itemChanges()
		if len(changes) != 2 {
			t.Fatalf("item changes = %d, want 2 (initial set + promotion)", len(changes))
		}
		if changes[1].Item == nil || changes[1].Item.URI != "/b.mp3" {
			t.Errorf("promotion change = %v, want /b.mp3", changes[1].Item)
		}
		if !cur.Released {
			t.Error("outgoing engine should be released")
		}
		if got := svc.CurrentItem(); got == nil || got.URI != "/b.mp3" {
			t.Errorf("CurrentItem = %v, want /b.mp3", got)
		}
		if svc.State() != source.Playing {
			t.Errorf("State = %v, want Playing", svc.State())
		}
	})
}

func TestSession_EngineErrorFailsWaitingCommand(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		svc, rec, engines := newSession(t)
		defer svc.Close()

		svc.SetItem(engine.Item{URI: "/a.mp3"})
		svc.Prepare()
		synctest.Wait()

		m := lastEngine(t, engines)
		m.FireError(engine.ErrorIO, 0)
		synctest.Wait()

		comps := rec.completions()
		if len(comps) != 2 {
			t.Fatalf("completions = %d, want 2", len(comps))
		}
		if comps[1].Call != scheduler.CallPrepare || comps[1].Status != status.IOError {
			t.Errorf("prepare completion = %v/%v, want Prepare/IOError", comps[1].Call, comps[1].Status)
		}
		if svc.State() != source.Errored {
			t.Errorf("State = %v, want Errored", svc.State())
		}

		// Non-recovery commands are rejected while errored.
		svc.Play()
		synctest.Wait()
		comps = rec.completions()
		if last := comps[len(comps)-1]; last.Call != scheduler.CallPlay || last.Status != status.InvalidOperation {
			t.Errorf("play completion = %v/%v, want Play/InvalidOperation", last.Call, last.Status)
		}

		// A new item recovers the session.
		svc.SetItem(engine.Item{URI: "/b.mp3"})
		synctest.Wait()
		comps = rec.completions()
		if last := comps[len(comps)-1]; last.Call != scheduler.CallSetItem || last.Status != status.OK {
			t.Errorf("recovery completion = %v/%v, want SetItem/OK", last.Call, last.Status)
		}
		if svc.State() != source.Idle {
			t.Errorf("State after recovery = %v, want Idle", svc.State())
		}
	})
}

func TestSession_NotifyWhenLabelReached(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		svc, rec, _ := newSession(t)
		defer svc.Close()

		svc.SetItem(engine.Item{URI: "/a.mp3"})
		svc.NotifyWhenLabelReached("intro-done")
		synctest.Wait()

		var labels []string
		for _, n := range rec.all() {
			if l, ok := n.(dispatcher.LabelReached); ok {
				labels = append(labels, l.Label)
			}
		}
		if len(labels) != 1 || labels[0] != "intro-done" {
			t.Errorf("labels = %v, want [intro-done]", labels)
		}
	})
}

func TestSession_ClearPendingCommands(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		svc, rec, engines := newSession(t)
		defer svc.Close()

		svc.SetItem(engine.Item{URI: "/a.mp3"})
		svc.Prepare()
		svc.Play()
		svc.SeekTo(time.Second, engine.SeekClosest)
		synctest.Wait()

		// Prepare is waiting; play and seek are still pending.
		svc.ClearPendingCommands()
		m := lastEngine(t, engines)
		m.FirePrepared()
		synctest.Wait()

		comps := rec.completions()
		if len(comps) != 2 {
			t.Fatalf("completions = %d, want 2 (set item + prepare)", len(comps))
		}
		if m.StartCalls != 0 {
			t.Error("cleared play must never reach the engine")
		}
		if len(m.SeekCalls) != 0 {
			t.Error("cleared seek must never reach the engine")
		}
	})
}

func TestSession_DirectReads_Guarded(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		svc, _, engines := newSession(t)
		defer svc.Close()

		if _, err := svc.Position(); status.FromError(err) != status.InvalidOperation {
			t.Errorf("Position on empty session = %v, want InvalidOperation", err)
		}
		if svc.CurrentItem() != nil {
			t.Error("CurrentItem should be nil before SetItem")
		}
		if svc.State() != source.Idle {
			t.Errorf("State = %v, want Idle", svc.State())
		}

		svc.SetItem(engine.Item{URI: "/a.mp3"})
		svc.Prepare()
		synctest.Wait()
		m := lastEngine(t, engines)
		m.DurationValue = 2 * time.Minute
		m.FirePrepared()
		synctest.Wait()

		if dur, err := svc.Duration(); err != nil || dur != 2*time.Minute {
			t.Errorf("Duration = %v/%v, want 2m", dur, err)
		}
	})
}

func TestSession_Reset_DiscardsPendingFirst(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		svc, rec, engines := newSession(t)
		defer svc.Close()

		svc.SetItem(engine.Item{URI: "/a.mp3"})
		svc.Prepare()
		svc.Play()
		svc.Reset()
		synctest.Wait()

		m := lastEngine(t, engines)
		m.FirePrepared()
		synctest.Wait()

		if m.StartCalls != 0 {
			t.Error("play behind a reset must not run")
		}
		var calls []scheduler.Call
		for _, c := range rec.completions() {
			calls = append(calls, c.Call)
		}
		// Pending play was discarded; set item, the waiting prepare and
		// the reset remain.
		for _, c := range calls {
			if c == scheduler.CallPlay {
				t.Errorf("completions %v should not include Play", calls)
			}
		}
		if svc.CurrentItem() != nil {
			t.Error("queue should be empty after reset")
		}
	})
}

// awaitCompletion registers a listener and returns a receive channel of
// call completions, for tests that cannot run inside a synctest bubble.
func awaitCompletion(svc Service) <-chan dispatcher.CallCompleted {
	ch := make(chan dispatcher.CallCompleted, 16)
	svc.Register(func(n dispatcher.Notification) {
		if c, ok := n.(dispatcher.CallCompleted); ok {
			ch <- c
		}
	}, dispatcher.Direct())
	return ch
}

func waitFor(t *testing.T, ch <-chan dispatcher.CallCompleted, call scheduler.Call) dispatcher.CallCompleted {
	t.Helper()
	for {
		select {
		case c := <-ch:
			if c.Call == call {
				return c
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %v completion", call)
		}
	}
}

func TestSession_PersistsPropertiesThroughStore(t *testing.T) {
	dbPath := t.TempDir() + "/segue.db"
	store, err := state.OpenAt(dbPath)
	if err != nil {
		t.Fatalf("OpenAt failed: %v", err)
	}

	engines := &[]*engine.Mock{}
	svc := New(engine.MockFactory(engines), Options{Store: store})
	done := awaitCompletion(svc)
	svc.SetVolume(0.4)
	if c := waitFor(t, done, scheduler.CallSetVolume); c.Status != status.OK {
		t.Fatalf("SetVolume completed with %v, want OK", c.Status)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("store Close failed: %v", err)
	}

	reopened, err := state.OpenAt(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	svc2 := New(engine.MockFactory(engines), Options{Store: reopened})
	defer svc2.Close()
	done2 := awaitCompletion(svc2)
	svc2.SetItem(engine.Item{URI: "/a.mp3"})
	waitFor(t, done2, scheduler.CallSetItem)

	if got := (*engines)[len(*engines)-1].VolumeValue; got != 0.4 {
		t.Errorf("restored volume = %v, want 0.4", got)
	}
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		svc, _, engines := newSession(t)
		svc.SetItem(engine.Item{URI: "/a.mp3"})
		synctest.Wait()

		if err := svc.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		if err := svc.Close(); err != nil {
			t.Fatalf("second Close failed: %v", err)
		}
		if !lastEngine(t, engines).Released {
			t.Error("close should release engines")
		}
	})
}
