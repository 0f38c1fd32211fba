package bus

import (
	"fmt"
	"sync"
	"testing"
)

func TestPublishDeliversInOrder(t *testing.T) {
	b := New()
	ch, cancel := b.Subscribe(16)
	defer cancel()

	for i := 0; i < 5; i++ {
		b.Publish(Transcript{SessionID: "s1", Text: fmt.Sprintf("w%d", i)})
	}

	var lastSeq int64
	for i := 0; i < 5; i++ {
		env := <-ch
		tr, ok := env.Event.(Transcript)
		if !ok {
			t.Fatalf("expected Transcript, got %T", env.Event)
		}
		want := fmt.Sprintf("w%d", i)
		if tr.Text != want {
			t.Errorf("event %d: expected text %q, got %q", i, want, tr.Text)
		}
		if env.Seq <= lastSeq {
			t.Errorf("event %d: sequence did not increase (%d after %d)", i, env.Seq, lastSeq)
		}
		lastSeq = env.Seq
	}
}

func TestFanOutReachesAllSubscribers(t *testing.T) {
	b := New()
	ch1, cancel1 := b.Subscribe(4)
	defer cancel1()
	ch2, cancel2 := b.Subscribe(4)
	defer cancel2()

	b.Publish(Connected{SessionID: "s1", Name: "alice"})

	for i, ch := range []<-chan Envelope{ch1, ch2} {
		env := <-ch
		c, ok := env.Event.(Connected)
		if !ok || c.Name != "alice" {
			t.Errorf("subscriber %d: expected Connected for alice, got %#v", i, env.Event)
		}
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	b := New()
	ch, cancel := b.Subscribe(1)

	b.Publish(Log{Message: "one"})
	cancel()
	// Must not block even though nobody is reading.
	b.Publish(Log{Message: "two"})

	count := 0
	for range ch {
		count++
	}
	if count > 1 {
		t.Errorf("expected at most one event after cancel, got %d", count)
	}
}

func TestPerPublisherOrderUnderConcurrency(t *testing.T) {
	b := New()
	ch, cancel := b.Subscribe(512)

	const perSession = 100
	var wg sync.WaitGroup
	for _, id := range []string{"s1", "s2"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for i := 0; i < perSession; i++ {
				b.Publish(Transcript{SessionID: id, Text: fmt.Sprintf("%d", i)})
			}
		}(id)
	}
	wg.Wait()

	got := map[string][]string{}
	for i := 0; i < 2*perSession; i++ {
		env := <-ch
		tr := env.Event.(Transcript)
		got[tr.SessionID] = append(got[tr.SessionID], tr.Text)
	}
	cancel()

	for _, id := range []string{"s1", "s2"} {
		if len(got[id]) != perSession {
			t.Fatalf("session %s: expected %d events, got %d", id, perSession, len(got[id]))
		}
		for i, text := range got[id] {
			if text != fmt.Sprintf("%d", i) {
				t.Errorf("session %s: event %d out of order: got %q", id, i, text)
				break
			}
		}
	}
}
