package app

import (
	"testing"

	"github.com/dkeye/Watch/internal/core/coretest"
)

func TestRegistryRoomBinding(t *testing.T) {
	reg := NewRegistry()
	s, _ := coretest.Session("X")
	canceled := false
	reg.BindSignal("X", s, func() { canceled = true })

	if _, _, ok := reg.RoomOf("X"); ok {
		t.Fatal("fresh connection should not be in a room")
	}
	if !reg.UpdateRoom("X", "AB12") {
		t.Fatal("UpdateRoom on a bound sid failed")
	}
	if id, sess, ok := reg.RoomOf("X"); !ok || id != "AB12" || sess != s {
		t.Fatalf("RoomOf = %v %v %v", id, sess, ok)
	}

	reg.RemoveRoom("X")
	if _, _, ok := reg.RoomOf("X"); ok {
		t.Fatal("RemoveRoom kept the room")
	}

	reg.UpdateRoom("X", "AB12")
	if !reg.Cancel("X") || !canceled {
		t.Fatal("Cancel did not call the cancel func")
	}
	if id, ok := reg.Unbind("X"); !ok || id != "AB12" {
		t.Fatalf("Unbind = %v %v", id, ok)
	}
	if _, ok := reg.Unbind("X"); ok {
		t.Fatal("second Unbind should report nothing")
	}
	if reg.UpdateRoom("X", "AB12") || reg.Len() != 0 {
		t.Fatal("unbound sid still tracked")
	}
}
