package event

import "testing"

func TestDispatchOrderAndConsume(t *testing.T) {
	m := NewManager()
	var got []int
	m.Subscribe(TypeContentChanged, func(Event) bool { got = append(got, 1); return false })
	m.Subscribe(TypeContentChanged, func(Event) bool { got = append(got, 2); return true })
	m.Subscribe(TypeContentChanged, func(Event) bool { got = append(got, 3); return false })
	m.Subscribe(TypeLayoutChanged, func(Event) bool { got = append(got, 9); return false })

	m.Dispatch(TypeContentChanged, ContentChangedData{})
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("handlers ran %v, want [1 2]", got)
	}
}

func TestUnsubscribe(t *testing.T) {
	m := NewManager()
	calls := 0
	id := m.Subscribe(TypeRedrawRequested, func(e Event) bool {
		if d, ok := e.Data.(RedrawRequestedData); !ok || d.Key != "b1" {
			t.Fatalf("unexpected data %#v", e.Data)
		}
		calls++
		return false
	})
	m.Dispatch(TypeRedrawRequested, RedrawRequestedData{Key: "b1"})
	m.Unsubscribe(id)
	m.Dispatch(TypeRedrawRequested, RedrawRequestedData{Key: "b1"})
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
}

func TestNilManagerDispatch(t *testing.T) {
	var m *Manager
	m.Dispatch(TypeLayoutChanged, nil)
}
