package room

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/bokeefe123/modaltron/internal/pubsub"
)

// adjectives/nouns back the default "The Mighty Battle"-style room name,
// matching services/room_name_generator.py::RoomNameGenerator verbatim
// in shape (trimmed word lists).
var (
	roomNameAdjectives = []string{
		"awesome", "amazing", "great", "fantastic", "super",
		"admirable", "famous", "fine", "gigantic", "grand",
		"marvelous", "mighty", "outstanding", "splendid", "wonderful",
	}
	roomNameNouns = []string{
		"game", "adventure", "fun zone", "arena", "party",
		"tournament", "league", "gala", "gathering", "bunch",
		"fight", "battle", "conflict", "encounter", "clash",
	}
)

// RepositoryEvent is the discriminated union the lobby listens on,
// matching the fanout set in original_source/python_server's
// rooms_controller.py.
type RepositoryEvent interface{ repositoryEvent() }

type EvRoomOpen struct{ Room *Room }
type EvRoomClose struct{ Room *Room }
type EvRoomPlayers struct{ Room *Room }
type EvRoomGame struct{ Room *Room }
type EvRoomConfigOpen struct{ Room *Room }

func (EvRoomOpen) repositoryEvent()       {}
func (EvRoomClose) repositoryEvent()      {}
func (EvRoomPlayers) repositoryEvent()    {}
func (EvRoomGame) repositoryEvent()       {}
func (EvRoomConfigOpen) repositoryEvent() {}

// Repository is the process-wide registry of open rooms, generating
// unique names on create and fanning each room's lifecycle events out to
// lobby subscribers (spec.md §4.1's room repository, grounded on
// room_repository.py and rooms_controller.py).
type Repository struct {
	mu    sync.Mutex
	rooms map[string]*Room

	Events *pubsub.Topic[RepositoryEvent]
}

// NewRepository constructs an empty room registry.
func NewRepository() *Repository {
	return &Repository{
		rooms:  make(map[string]*Room),
		Events: pubsub.NewTopic[RepositoryEvent](),
	}
}

// Get returns the room registered under name, or nil.
func (repo *Repository) Get(name string) *Room {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return repo.rooms[name]
}

// List returns every currently open room, in no particular order.
func (repo *Repository) List() []*Room {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	out := make([]*Room, 0, len(repo.rooms))
	for _, r := range repo.rooms {
		out = append(out, r)
	}
	return out
}

// Create allocates a fresh room, registers it, wires its lifecycle
// events into the lobby fanout, and emits EvRoomOpen. name is the
// client-requested room name (spec.md §6 `room:create({name?})`),
// trimmed and length-capped; an empty name falls back to a generated
// one. Create returns nil if name is already taken — matching
// room_repository.py::create, which does not retry a client-supplied
// name on collision.
func (repo *Repository) Create(name string) *Room {
	name = strings.TrimSpace(name)
	if len(name) > maxRoomName {
		name = name[:maxRoomName]
	}

	repo.mu.Lock()
	if name == "" {
		name = repo.uniqueNameLocked()
	} else if _, taken := repo.rooms[name]; taken {
		repo.mu.Unlock()
		return nil
	}
	r := NewRoom(name)
	repo.rooms[name] = r
	repo.mu.Unlock()

	repo.wire(r)
	repo.Events.Emit(EvRoomOpen{Room: r})
	return r
}

// uniqueNameLocked must be called with mu held.
func (repo *Repository) uniqueNameLocked() string {
	for {
		name := randomName()
		if _, taken := repo.rooms[name]; !taken {
			return name
		}
	}
}

func randomName() string {
	adj := roomNameAdjectives[rand.Intn(len(roomNameAdjectives))]
	noun := roomNameNouns[rand.Intn(len(roomNameNouns))]
	return fmt.Sprintf("The %s %s", adj, noun)
}

// wire subscribes to a room's events for as long as it stays open,
// translating them into repository-level lobby events and detaching on
// EvClose (spec §9 Open Question 1: explicit Unsubscribe, no leaked
// string-keyed listeners).
func (repo *Repository) wire(r *Room) {
	var unsub pubsub.Unsubscribe
	unsub = r.Events.Subscribe(func(ev RoomEvent) {
		switch ev.(type) {
		case EvPlayerJoin, EvPlayerLeave:
			repo.Events.Emit(EvRoomPlayers{Room: r})
		case EvGameNew, EvGameEnd:
			repo.Events.Emit(EvRoomGame{Room: r})
		case EvClose:
			unsub()
			repo.remove(r)
			repo.Events.Emit(EvRoomClose{Room: r})
		}
	})
	r.Config.Events.Subscribe(func(ConfigEvent) {
		repo.Events.Emit(EvRoomConfigOpen{Room: r})
	})
}

func (repo *Repository) remove(r *Room) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if repo.rooms[r.Name] == r {
		delete(repo.rooms, r.Name)
	}
}

// Join looks up a room by name, checking its password when closed.
// ErrRoomNotFound and ErrWrongPassword distinguish the two failure modes
// so the caller's ack can report the right message (spec.md §7).
func (repo *Repository) Join(name, password string) (*Room, error) {
	r := repo.Get(name)
	if r == nil {
		return nil, ErrRoomNotFound
	}
	if !r.Config.Allow(password) {
		return nil, ErrWrongPassword
	}
	return r, nil
}

// ErrRoomNotFound is returned by Join when no room is registered under
// the requested name.
var ErrRoomNotFound = fmt.Errorf("room not found")

// ErrWrongPassword is returned by Join when the room is closed and the
// supplied password does not match.
var ErrWrongPassword = fmt.Errorf("wrong password")
