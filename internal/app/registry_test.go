package app

import (
	"testing"

	"github.com/huddlehq/relay/internal/core"
	"github.com/huddlehq/relay/internal/domain"
)

type nopConn struct{}

func (nopConn) TrySend(core.Frame) error { return nil }
func (nopConn) Close(int, string)        {}

func newEntry(id domain.UserID) *Connection {
	return NewConnection(domain.User{ID: id, Username: string(id)}, nopConn{})
}

func TestRegistryRegisterReturnsSuperseded(t *testing.T) {
	reg := NewRegistry()

	first := newEntry("alice")
	if prev := reg.Register(first); prev != nil {
		t.Fatal("first register must not supersede anything")
	}

	second := newEntry("alice")
	prev := reg.Register(second)
	if prev != first {
		t.Fatal("second register must hand back the first connection")
	}

	got, ok := reg.Get("alice")
	if !ok || got != second {
		t.Fatal("registry must map alice to the second connection")
	}
}

func TestRegistryUnregisterOnlyRemovesLiveEntry(t *testing.T) {
	reg := NewRegistry()

	first := newEntry("alice")
	reg.Register(first)
	second := newEntry("alice")
	reg.Register(second)

	// The superseded connection closing late must not evict its successor.
	if reg.Unregister(first) {
		t.Fatal("unregister of a superseded entry must report false")
	}
	if _, ok := reg.Get("alice"); !ok {
		t.Fatal("successor must still be registered")
	}

	if !reg.Unregister(second) {
		t.Fatal("unregister of the live entry must report true")
	}
	if reg.Count() != 0 {
		t.Fatal("registry must be empty")
	}
}

func TestConnectionClearRoomIsCompareAndClear(t *testing.T) {
	c := newEntry("alice")
	c.SetRoom("r1")

	if c.ClearRoom("r2") {
		t.Fatal("clearing a different room must fail")
	}
	if !c.ClearRoom("r1") {
		t.Fatal("first clear of the held room must win")
	}
	if c.ClearRoom("r1") {
		t.Fatal("second clear must lose")
	}
	if _, ok := c.Room(); ok {
		t.Fatal("room reference must be gone")
	}
}

func TestConnectionMergeMedia(t *testing.T) {
	c := newEntry("alice")

	on := true
	got := c.MergeMedia(domain.MediaStateUpdate{Video: &on})
	if !got.Video || got.Audio || got.Screen {
		t.Fatalf("unexpected state after video on: %+v", got)
	}

	// Omitted flags keep their prior value.
	got = c.MergeMedia(domain.MediaStateUpdate{Audio: &on})
	if !got.Video || !got.Audio || got.Screen {
		t.Fatalf("unexpected state after audio on: %+v", got)
	}

	off := false
	got = c.MergeMedia(domain.MediaStateUpdate{Video: &off})
	if got.Video || !got.Audio {
		t.Fatalf("unexpected state after video off: %+v", got)
	}
}
