package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(10, "daemon.")
	defer unsub()

	b.Publish(Event{Kind: KindStatusChanged, Timestamp: time.Now(), Payload: "test"})

	select {
	case evt := <-ch:
		if evt.Kind != KindStatusChanged {
			t.Errorf("got kind %q, want %s", evt.Kind, KindStatusChanged)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(10, "store.")
	defer unsub()

	b.Publish(Event{Kind: KindStatusChanged})
	b.Publish(Event{Kind: KindStoreApps})

	select {
	case evt := <-ch:
		if evt.Kind != KindStoreApps {
			t.Errorf("got kind %q, want %s", evt.Kind, KindStoreApps)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	// Ensure the daemon event was not delivered.
	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMultipleNamespaces(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(10, KindStoreApps, KindStoreLabels)
	defer unsub()

	b.Emit(KindStoreContacts, nil)
	b.Emit(KindStoreLabels, nil)
	b.Emit(KindStoreApps, nil)

	var got []string
	for range 2 {
		select {
		case evt := <-ch:
			got = append(got, evt.Kind)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for event")
		}
	}
	if got[0] != KindStoreLabels || got[1] != KindStoreApps {
		t.Errorf("got %v, want [%s %s]", got, KindStoreLabels, KindStoreApps)
	}
}

func TestPublishStampsTimestamp(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(1, "store.")
	defer unsub()

	b.Publish(Event{Kind: KindStoreRates})
	if evt := <-ch; evt.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(10, "daemon.")
	unsub()

	b.Publish(Event{Kind: KindStatusChanged})

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(1, "test.")
	defer unsub()

	b.Publish(Event{Kind: "test.one"})
	// Dropped: the buffer is full.
	b.Publish(Event{Kind: "test.two"})

	evt := <-ch
	if evt.Kind != "test.one" {
		t.Errorf("got %q, want test.one", evt.Kind)
	}
}

func TestWatchCoalesces(t *testing.T) {
	b := New()
	sig, stop := b.Watch("store.")
	defer stop()

	for range 5 {
		b.Emit(KindStoreApps, nil)
	}

	select {
	case <-sig:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for signal")
	}

	// At most one further signal can be pending from the burst.
	time.Sleep(50 * time.Millisecond)
	extra := 0
	for {
		select {
		case <-sig:
			extra++
			continue
		default:
		}
		break
	}
	if extra > 1 {
		t.Errorf("got %d extra signals, want at most 1", extra)
	}
}

func TestWatchStopIsIdempotent(t *testing.T) {
	b := New()
	_, stop := b.Watch("store.")
	stop()
	stop()
	b.Emit(KindStoreApps, nil)
}
