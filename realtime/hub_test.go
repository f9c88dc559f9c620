package realtime

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func newTestHub() *Hub {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewHub(log)
}

func TestChannelDeliveryReachesSubscribersOnly(t *testing.T) {
	hub := newTestHub()
	defer hub.Close()

	subscribed := hub.Register("watcher")
	hub.Subscribe("watcher", "issue-abc")
	bystander := hub.Register("bystander")

	hub.EmitToChannel("issue-abc", "issue-updated", "payload")

	select {
	case ev := <-subscribed:
		if ev.Name != "issue-updated" || ev.Data != "payload" {
			t.Errorf("unexpected event %+v", ev)
		}
	default:
		t.Fatal("subscriber did not receive the channel event")
	}

	select {
	case ev := <-bystander:
		t.Errorf("unsubscribed client received %+v", ev)
	default:
	}
}

func TestGlobalDeliveryReachesEveryClient(t *testing.T) {
	hub := newTestHub()
	defer hub.Close()

	a := hub.Register("a")
	b := hub.Register("b")

	hub.EmitGlobal("dashboard-update", 42)

	for name, ch := range map[string]<-chan Event{"a": a, "b": b} {
		select {
		case ev := <-ch:
			if ev.Name != "dashboard-update" {
				t.Errorf("client %s got %+v", name, ev)
			}
		default:
			t.Errorf("client %s missed the global event", name)
		}
	}
}

func TestEmitToEmptyChannelIsNoOp(t *testing.T) {
	hub := newTestHub()
	defer hub.Close()

	// no subscribers at all: must not panic or block
	hub.EmitToChannel("issue-nobody", "issue-updated", nil)
}

func TestUnsubscribeStopsChannelDelivery(t *testing.T) {
	hub := newTestHub()
	defer hub.Close()

	ch := hub.Register("watcher")
	hub.Subscribe("watcher", "issue-abc")
	hub.Unsubscribe("watcher", "issue-abc")

	hub.EmitToChannel("issue-abc", "issue-updated", nil)

	select {
	case ev := <-ch:
		t.Errorf("received event after unsubscribe: %+v", ev)
	default:
	}
}

func TestUnregisterClosesStream(t *testing.T) {
	hub := newTestHub()
	defer hub.Close()

	ch := hub.Register("watcher")
	hub.Unregister("watcher")

	if _, open := <-ch; open {
		t.Error("stream still open after unregister")
	}

	// emits after unregister must not panic
	hub.EmitGlobal("dashboard-update", nil)
}

func TestSlowClientDoesNotBlockEmit(t *testing.T) {
	hub := newTestHub()
	defer hub.Close()

	hub.Register("slow")
	hub.Subscribe("slow", "issue-abc")

	// overflow the client buffer; delivery must stay non-blocking
	for i := 0; i < 100; i++ {
		hub.EmitToChannel("issue-abc", "issue-updated", i)
	}
}

func TestCloseRejectsNewClients(t *testing.T) {
	hub := newTestHub()

	ch := hub.Register("watcher")
	hub.Close()

	if _, open := <-ch; open {
		t.Error("stream still open after hub close")
	}
	if got := hub.Register("late"); got != nil {
		t.Error("Register after Close must return nil")
	}
}
