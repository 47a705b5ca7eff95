package adapter

import "testing"

func sortedStrings[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func TestLocalAddJoinsRoomAndEmitsOnce(t *testing.T) {
	a := NewLocal()

	var created []Room
	a.On("create-room", func(args ...any) { created = append(created, args[0].(Room)) })
	var joined int
	a.On("join-room", func(args ...any) { joined++ })

	a.LocalAdd("sid-1", "lobby")
	a.LocalAdd("sid-2", "lobby")

	if len(created) != 1 {
		t.Fatalf("expected create-room emitted once, got %d", len(created))
	}
	if joined != 2 {
		t.Fatalf("expected join-room emitted per socket, got %d", joined)
	}

	clients := a.LocalClients([]Room{"lobby"})
	if got := sortedStrings(clients); len(got) != 2 || got[0] != "sid-1" || got[1] != "sid-2" {
		t.Fatalf("unexpected clients: %v", got)
	}
}

func TestLocalAddIdempotent(t *testing.T) {
	a := NewLocal()

	joined := 0
	a.On("join-room", func(args ...any) { joined++ })

	a.LocalAdd("sid-1", "lobby")
	a.LocalAdd("sid-1", "lobby")

	if joined != 1 {
		t.Fatalf("expected a repeat join to be a no-op, got %d join-room emits", joined)
	}
	if rooms := a.SocketRooms("sid-1"); len(rooms) != 1 {
		t.Fatalf("expected exactly one joined room, got %v", rooms)
	}
}

func TestLocalDelPrunesEmptyRoom(t *testing.T) {
	a := NewLocal()

	var deleted []Room
	a.On("delete-room", func(args ...any) { deleted = append(deleted, args[0].(Room)) })
	var left int
	a.On("leave-room", func(args ...any) { left++ })

	a.LocalAdd("sid-1", "lobby")
	a.LocalDel("sid-1", "lobby")

	if left != 1 {
		t.Fatalf("expected one leave-room emit, got %d", left)
	}
	if len(deleted) != 1 || deleted[0] != "lobby" {
		t.Fatalf("expected delete-room emitted for emptied room, got %v", deleted)
	}
	if got := a.LocalClients([]Room{"lobby"}); len(got) != 0 {
		t.Fatalf("expected no clients left in lobby, got %v", got)
	}
}

func TestLocalDelIdempotent(t *testing.T) {
	a := NewLocal()
	a.LocalAdd("sid-1", "lobby")
	a.LocalDel("sid-1", "lobby")

	// Second Del on an already-removed membership must not panic or
	// re-emit leave-room/delete-room.
	left := 0
	a.On("leave-room", func(args ...any) { left++ })
	a.LocalDel("sid-1", "lobby")

	if left != 0 {
		t.Fatalf("expected no further leave-room emits, got %d", left)
	}
}

func TestLocalDelAllReturnsAffectedRoomsAndRemovesSocket(t *testing.T) {
	a := NewLocal()
	a.LocalAdd("sid-1", "lobby")
	a.LocalAdd("sid-1", "game")
	a.LocalAdd("sid-2", "lobby")

	rooms := a.LocalDelAll("sid-1")
	if got := sortedStrings(rooms); len(got) != 2 || got[0] != "game" || got[1] != "lobby" {
		t.Fatalf("unexpected affected rooms: %v", got)
	}

	if got := a.SocketRooms("sid-1"); got != nil {
		t.Fatalf("expected sid-1 to have no rooms recorded, got %v", got)
	}

	// lobby had another member, so it must survive.
	if got := a.LocalClients([]Room{"lobby"}); len(got) != 1 || got[0] != "sid-2" {
		t.Fatalf("expected sid-2 to remain in lobby, got %v", got)
	}
	// game had only sid-1, so it must be gone.
	if got := a.LocalClients([]Room{"game"}); len(got) != 0 {
		t.Fatalf("expected game room emptied, got %v", got)
	}
}

func TestLocalDelAllOnUnknownSocketIsNoop(t *testing.T) {
	a := NewLocal()
	if rooms := a.LocalDelAll("ghost"); rooms != nil {
		t.Fatalf("expected nil for unknown socket, got %v", rooms)
	}
}

func TestLocalClientsUnionAcrossRooms(t *testing.T) {
	a := NewLocal()
	a.LocalAdd("sid-1", "a")
	a.LocalAdd("sid-2", "b")
	a.LocalAdd("sid-3", "c")

	got := sortedStrings(a.LocalClients([]Room{"a", "b"}))
	if len(got) != 2 || got[0] != "sid-1" || got[1] != "sid-2" {
		t.Fatalf("unexpected union: %v", got)
	}
}

func TestLocalClientsEmptyFilterReturnsEveryone(t *testing.T) {
	a := NewLocal()
	a.LocalAdd("sid-1", "a")
	a.LocalAdd("sid-2", "b")

	got := sortedStrings(a.LocalClients(nil))
	if len(got) != 2 {
		t.Fatalf("expected every socket with an empty filter, got %v", got)
	}
}

func TestLocalClientsDeduplicatesSocketInMultipleRooms(t *testing.T) {
	a := NewLocal()
	a.LocalAdd("sid-1", "a")
	a.LocalAdd("sid-1", "b")

	got := a.LocalClients([]Room{"a", "b"})
	if len(got) != 1 || got[0] != "sid-1" {
		t.Fatalf("expected sid-1 once despite being in both rooms, got %v", got)
	}
}

func TestLocalRoomsReflectsCurrentMembership(t *testing.T) {
	a := NewLocal()
	if got := a.LocalRooms(); len(got) != 0 {
		t.Fatalf("expected no rooms initially, got %v", got)
	}

	a.LocalAdd("sid-1", "a")
	a.LocalAdd("sid-2", "b")

	got := sortedStrings(a.LocalRooms())
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected rooms [a b], got %v", got)
	}

	a.LocalDel("sid-2", "b")
	got = sortedStrings(a.LocalRooms())
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("expected room 'b' pruned after its last member left, got %v", got)
	}
}
