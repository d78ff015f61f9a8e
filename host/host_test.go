package host

import (
	"testing"

	"github.com/tilegate/gethook/packet"
)

func TestInvokeOrder(t *testing.T) {
	var h NetGetData
	var order []string
	h.Register("low", func(*GetDataEventArgs) { order = append(order, "low") }, -1)
	h.Register("first", func(*GetDataEventArgs) { order = append(order, "first") }, 10)
	h.Register("second", func(*GetDataEventArgs) { order = append(order, "second") }, 10)
	h.Register("zero", func(*GetDataEventArgs) { order = append(order, "zero") }, 0)

	h.Invoke(&GetDataEventArgs{MsgID: packet.Tile})
	want := []string{"first", "second", "zero", "low"}
	if len(order) != len(want) {
		t.Fatalf("order=%v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order=%v want %v", order, want)
		}
	}
}

func TestInvokeSurvivesPanic(t *testing.T) {
	var h NetGetData
	h.Register("bad", func(*GetDataEventArgs) { panic("boom") }, 1)
	h.Register("good", func(args *GetDataEventArgs) { args.Handled = true }, 0)

	if !h.Invoke(&GetDataEventArgs{}) {
		t.Fatal("handler after a panic did not run")
	}
}

func TestDeregister(t *testing.T) {
	var h NetGetData
	calls := 0
	id := h.Register("counter", func(*GetDataEventArgs) { calls++ }, 0)
	if !h.Deregister(id) || h.Deregister(id) {
		t.Fatal("deregister should succeed exactly once")
	}
	h.Invoke(&GetDataEventArgs{})
	if calls != 0 || h.Count() != 0 {
		t.Fatalf("calls=%d count=%d", calls, h.Count())
	}
}
