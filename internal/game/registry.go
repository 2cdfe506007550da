package game

import (
	"encoding/json"
	"strings"
	"sync"
)

// Registry maps room codes to lobbies and connections to their player. Its
// own lock only guards the two maps; lobby work runs under the lobby's lock.
type Registry struct {
	mu       sync.RWMutex
	ids      IDGenerator
	shuffler *Shuffler
	defaults Settings
	lobbies  map[string]*Lobby
	bindings map[ConnID]Binding
}

type Option func(*Registry)

func WithIDGenerator(ids IDGenerator) Option {
	return func(r *Registry) {
		if ids != nil {
			r.ids = ids
		}
	}
}

func WithShuffler(shuffler *Shuffler) Option {
	return func(r *Registry) {
		if shuffler != nil {
			r.shuffler = shuffler
		}
	}
}

func NewRegistry(defaults Settings, opts ...Option) *Registry {
	r := &Registry{
		ids:      NewIDGenerator(),
		shuffler: newProcessShuffler(),
		defaults: defaults.withDefaults(DefaultSettings()),
		lobbies:  make(map[string]*Lobby),
		bindings: make(map[ConnID]Binding),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) CreateLobby(conn ConnID, name string, settings Settings) (CreateResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return CreateResult{}, ErrInvalidInput
	}
	left := r.leave(conn)

	r.mu.Lock()
	code := r.ids.RoomCode()
	for r.lobbies[code] != nil {
		code = r.ids.RoomCode()
	}
	lobby := newLobby(code, settings.withDefaults(r.defaults), r.ids, r.shuffler)
	player, err := lobby.addPlayer(conn, name)
	if err != nil {
		r.mu.Unlock()
		return CreateResult{}, err
	}
	r.lobbies[code] = lobby
	r.bindings[conn] = Binding{RoomCode: code, PlayerID: player.ID}
	r.mu.Unlock()

	return CreateResult{
		RoomCode: code,
		PlayerID: player.ID,
		Lobby:    lobby.Snapshot(player.ID),
		Left:     left,
	}, nil
}

// JoinLobby seats the connection in the room first and only then leaves any
// lobby it was in, so a rejected join keeps the old seat.
func (r *Registry) JoinLobby(conn ConnID, code, name string) (JoinResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return JoinResult{}, ErrInvalidInput
	}
	code = NormalizeRoomCode(code)

	r.mu.RLock()
	lobby := r.lobbies[code]
	r.mu.RUnlock()
	if lobby == nil {
		return JoinResult{}, ErrRoomNotFound
	}

	player, err := lobby.addPlayer(conn, name)
	if err != nil {
		return JoinResult{}, err
	}
	left := r.leave(conn)

	r.mu.Lock()
	r.bindings[conn] = Binding{RoomCode: code, PlayerID: player.ID}
	r.mu.Unlock()

	return JoinResult{
		RoomCode: code,
		PlayerID: player.ID,
		Lobby:    lobby.Snapshot(player.ID),
		Left:     left,
	}, nil
}

func (r *Registry) Resolve(conn ConnID) (Binding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	binding, ok := r.bindings[conn]
	if !ok {
		return Binding{}, ErrNotBound
	}
	return binding, nil
}

func (r *Registry) Lobby(code string) (*Lobby, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lobby, ok := r.lobbies[NormalizeRoomCode(code)]
	return lobby, ok
}

// Disconnect removes the connection's player and destroys the lobby once it
// is empty. Unbound connections are ignored.
func (r *Registry) Disconnect(conn ConnID) (DisconnectResult, bool) {
	r.mu.Lock()
	binding, ok := r.bindings[conn]
	if ok {
		delete(r.bindings, conn)
	}
	lobby := r.lobbies[binding.RoomCode]
	r.mu.Unlock()
	if !ok || lobby == nil {
		return DisconnectResult{}, false
	}

	removed := lobby.RemovePlayer(binding.PlayerID)
	if removed.Empty {
		r.mu.Lock()
		if r.lobbies[binding.RoomCode] == lobby {
			delete(r.lobbies, binding.RoomCode)
		}
		r.mu.Unlock()
	}
	return DisconnectResult{
		Binding:      binding,
		Lobby:        lobby,
		RemoveResult: removed,
	}, true
}

// Stats reports live lobby and bound connection counts.
func (r *Registry) Stats() (lobbies int, connections int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.lobbies), len(r.bindings)
}

func (r *Registry) OpenWordSubmission(conn ConnID) (Snapshot, error) {
	lobby, binding, err := r.bound(conn)
	if err != nil {
		return Snapshot{}, err
	}
	return lobby.OpenWordSubmission(binding.PlayerID)
}

func (r *Registry) SubmitWord(conn ConnID, word string) (Snapshot, error) {
	lobby, binding, err := r.bound(conn)
	if err != nil {
		return Snapshot{}, err
	}
	return lobby.SubmitWord(binding.PlayerID, word)
}

func (r *Registry) SetReady(conn ConnID, ready bool) (Snapshot, error) {
	lobby, binding, err := r.bound(conn)
	if err != nil {
		return Snapshot{}, err
	}
	return lobby.SetReady(binding.PlayerID, ready)
}

func (r *Registry) StartGame(conn ConnID) (StartResult, error) {
	lobby, binding, err := r.bound(conn)
	if err != nil {
		return StartResult{}, err
	}
	return lobby.StartGame(binding.PlayerID)
}

func (r *Registry) SubmitDrawing(conn ConnID, data json.RawMessage) (DrawingResult, error) {
	lobby, binding, err := r.bound(conn)
	if err != nil {
		return DrawingResult{}, err
	}
	return lobby.SubmitDrawing(binding.PlayerID, data)
}

func (r *Registry) VoteDrawing(conn ConnID, drawingID string) (VoteResult, error) {
	lobby, binding, err := r.bound(conn)
	if err != nil {
		return VoteResult{}, err
	}
	return lobby.VoteDrawing(binding.PlayerID, drawingID)
}

func (r *Registry) SendChatMessage(conn ConnID, text string) (ChatMessage, error) {
	lobby, binding, err := r.bound(conn)
	if err != nil {
		return ChatMessage{}, err
	}
	return lobby.SendChatMessage(binding.PlayerID, text)
}

func (r *Registry) bound(conn ConnID) (*Lobby, Binding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	binding, ok := r.bindings[conn]
	if !ok {
		return nil, Binding{}, ErrNotBound
	}
	lobby := r.lobbies[binding.RoomCode]
	if lobby == nil {
		return nil, Binding{}, ErrRoomNotFound
	}
	return lobby, binding, nil
}

func (r *Registry) leave(conn ConnID) *DisconnectResult {
	result, ok := r.Disconnect(conn)
	if !ok {
		return nil
	}
	return &result
}

func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
