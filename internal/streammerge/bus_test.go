package streammerge

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func drain(t *testing.T, ch <-chan Event, timeout time.Duration) []Event {
	t.Helper()
	var got []Event
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-time.After(timeout):
			t.Fatal("timed out waiting for events")
		}
	}
}

func TestSubscribeBeforeDoneReceivesLiveEvents(t *testing.T) {
	run := NewRun()
	events, unsub := run.Subscribe()
	defer unsub()

	run.Append(Event{Name: EventChunk, Data: ChunkData{Text: "hello"}})
	run.Append(Event{Name: EventDone, Data: DoneData{}})

	got := drain(t, events, time.Second)
	if len(got) != 2 || got[0].Name != EventChunk || got[1].Name != EventDone {
		t.Fatalf("unexpected events: %+v", got)
	}
}

func TestSubscribeAfterDoneReplaysThenCloses(t *testing.T) {
	run := NewRun()
	run.Append(Event{Name: EventChunk, Data: ChunkData{Text: "a"}})
	run.Append(Event{Name: EventChunk, Data: ChunkData{Text: "b"}})
	run.Append(Event{Name: EventDone, Data: DoneData{}})

	events, unsub := run.Subscribe()
	defer unsub()

	got := drain(t, events, time.Second)
	if len(got) != 3 {
		t.Fatalf("expected replay of 3 events, got %d", len(got))
	}
	if got[2].Name != EventDone {
		t.Fatalf("expected last replayed event to be done, got %v", got[2].Name)
	}
}

func TestAppendAfterDoneIsNoOp(t *testing.T) {
	run := NewRun()
	run.Append(Event{Name: EventDone, Data: DoneData{}})
	run.Append(Event{Name: EventChunk, Data: ChunkData{Text: "late"}})

	events, unsub := run.Subscribe()
	defer unsub()
	got := drain(t, events, time.Second)
	if len(got) != 1 {
		t.Fatalf("expected only the done event to survive, got %+v", got)
	}
}

func TestMultipleSubscribersEachGetAllEvents(t *testing.T) {
	run := NewRun()
	events1, unsub1 := run.Subscribe()
	events2, unsub2 := run.Subscribe()
	defer unsub1()
	defer unsub2()

	run.Append(Event{Name: EventStatus, Data: map[string]string{"stage": "extracting"}})
	run.Append(Event{Name: EventDone, Data: DoneData{}})

	got1 := drain(t, events1, time.Second)
	got2 := drain(t, events2, time.Second)
	if len(got1) != 2 || len(got2) != 2 {
		t.Fatalf("expected both subscribers to see both events, got %d and %d", len(got1), len(got2))
	}
}

func TestBusStartRunAndLookup(t *testing.T) {
	bus := NewBus()
	run := bus.StartRun("run-1")
	if got, ok := bus.Run("run-1"); !ok || got != run {
		t.Fatal("expected Run to find the just-started run")
	}
	if _, ok := bus.Run("missing"); ok {
		t.Fatal("expected a lookup miss for an unknown runId")
	}
	bus.Forget("run-1")
	if _, ok := bus.Run("run-1"); ok {
		t.Fatal("expected Forget to remove the run")
	}
}

func TestWriteSSEFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSSE(&buf, Event{Name: EventChunk, Data: ChunkData{Text: "hi"}}); err != nil {
		t.Fatalf("WriteSSE: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "event: chunk\ndata: ") || !strings.HasSuffix(out, "\n\n") {
		t.Fatalf("unexpected SSE frame: %q", out)
	}
	if !strings.Contains(out, `"text":"hi"`) {
		t.Fatalf("expected chunk data in frame: %q", out)
	}
}
