package event

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestBus_PublishToSubscriber(t *testing.T) {
	bus := NewBus()

	var got Event
	id := bus.Subscribe(TypeNegotiationCompleted, func(e Event) { got = e })
	if id == "" {
		t.Fatal("Subscribe should return a non-empty ID")
	}

	bus.Publish(NewNegotiationCompletedEvent("s1", "p1", "winner", 3, time.Second))

	done, ok := got.(NegotiationCompletedEvent)
	if !ok {
		t.Fatalf("handler received %T, want NegotiationCompletedEvent", got)
	}
	if done.Outcome != "winner" || done.Rounds != 3 || done.PeerID != "p1" {
		t.Errorf("unexpected event payload: %+v", done)
	}
}

func TestBus_NoMatchingHandlers(t *testing.T) {
	bus := NewBus()
	bus.Subscribe(TypeProfileActivated, func(e Event) {
		t.Error("handler called for non-matching event type")
	})
	bus.Publish(NewRoleEnteredEvent("s1", "sender", 1))
}

func TestBus_NilBusDropsEvents(t *testing.T) {
	var bus *Bus
	bus.Publish(NewMessageSentEvent("s1", "dice", "42"))
}

func TestBus_OrderSpecificThenWildcard(t *testing.T) {
	bus := NewBus()

	var order []string
	bus.SubscribeAll(func(e Event) { order = append(order, "wildcard") })
	bus.Subscribe(TypeRoleEntered, func(e Event) { order = append(order, "specific-1") })
	bus.Subscribe(TypeRoleEntered, func(e Event) { order = append(order, "specific-2") })

	bus.Publish(NewRoleEnteredEvent("s1", "receiver", 2))

	want := []string{"specific-1", "specific-2", "wildcard"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	calls := map[string]int{}
	id1 := bus.Subscribe(TypeMessageDropped, func(e Event) { calls["first"]++ })
	bus.Subscribe(TypeMessageDropped, func(e Event) { calls["second"]++ })

	if !bus.Unsubscribe(id1) {
		t.Fatal("Unsubscribe should return true for an existing subscription")
	}
	if bus.Unsubscribe(id1) {
		t.Error("Unsubscribe should return false the second time")
	}

	bus.Publish(NewMessageDroppedEvent("s1", "x", "offer", "stale sender"))

	if calls["first"] != 0 || calls["second"] != 1 {
		t.Errorf("calls = %v, want first=0 second=1", calls)
	}
	if bus.SubscriptionCount() != 1 {
		t.Errorf("SubscriptionCount() = %d, want 1", bus.SubscriptionCount())
	}
}

func TestBus_Clear(t *testing.T) {
	bus := NewBus()
	bus.Subscribe(TypeNegotiationStarted, func(e Event) {})
	bus.Subscribe(TypeDiceExchanged, func(e Event) {})
	bus.SubscribeAll(func(e Event) {})

	if bus.SubscriptionCount() != 3 {
		t.Fatalf("SubscriptionCount() = %d, want 3", bus.SubscriptionCount())
	}
	bus.Clear()
	if bus.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() after Clear = %d, want 0", bus.SubscriptionCount())
	}
}

func TestBus_HandlerPanicRecovery(t *testing.T) {
	bus := NewBus()

	calls := 0
	bus.Subscribe(TypeTransportError, func(e Event) {
		calls++
		panic("handler panic")
	})
	bus.Subscribe(TypeTransportError, func(e Event) { calls++ })

	bus.Publish(NewTransportErrorEvent("redis", errors.New("down")))

	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	calls := 0
	bus.Subscribe(TypeMessageSent, func(e Event) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for range 100 {
		wg.Go(func() {
			bus.Publish(NewMessageSentEvent("s", "offer", "o"))
		})
	}
	wg.Wait()

	if calls != 100 {
		t.Errorf("calls = %d, want 100", calls)
	}
}

func TestBus_ConcurrentSubscribeUnsubscribe(t *testing.T) {
	bus := NewBus()

	var wg sync.WaitGroup
	for range 50 {
		wg.Go(func() {
			id := bus.Subscribe(TypeRoleEntered, func(e Event) {})
			bus.Unsubscribe(id)
		})
	}
	wg.Wait()

	if bus.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", bus.SubscriptionCount())
	}
}

func TestBus_UniqueIDs(t *testing.T) {
	bus := NewBus()

	ids := make(map[string]bool)
	for range 500 {
		id := bus.Subscribe(TypeRoleEntered, func(e Event) {})
		if ids[id] {
			t.Fatalf("duplicate subscription ID: %s", id)
		}
		ids[id] = true
	}
}
