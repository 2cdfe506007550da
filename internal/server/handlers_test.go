package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sketch-party/internal/game"
	"sketch-party/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	alice := dialWS(t, env)
	alice.send(msgCreateLobby, map[string]any{"player_name": "Alice"})
	alice.expect(msgLobbyCreated)

	resp := doRequest(t, env.ts, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "OK", body["status"])
	assert.EqualValues(t, 1, body["lobbies"])
	assert.EqualValues(t, 1, body["connections"])
	_, err := time.Parse(time.RFC3339, body["timestamp"].(string))
	assert.NoError(t, err)
}

func TestGetLobby(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	resp := doRequest(t, env.ts, http.MethodGet, "/api/lobbies/ABC123", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doRequest(t, env.ts, http.MethodGet, "/api/lobbies/AB", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	alice := dialWS(t, env)
	alice.send(msgCreateLobby, map[string]any{"player_name": "Alice"})
	alice.expect(msgLobbyCreated)
	alice.send(msgSubmitWord, map[string]any{"word": "lighthouse"})
	alice.expect(msgWordSubmitted)

	resp = doRequest(t, env.ts, http.MethodGet, "/api/lobbies/abc123", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "ABC123", body["room_code"])
	assert.Equal(t, "waiting", body["game_state"])
	players := body["players"].([]any)
	require.Len(t, players, 1)
	player := players[0].(map[string]any)
	assert.Equal(t, true, player["has_word"])
	assert.NotContains(t, player, "word")
}

func TestGetLobbyFallsBackToCache(t *testing.T) {
	srv := miniredis.RunT(t)
	cache := store.NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: srv.Addr()}))
	env := newTestEnv(t, envOptions{cache: cache})

	cached := game.Snapshot{RoomCode: "QRS789", Phase: game.PhaseVoting}
	require.NoError(t, cache.CacheLobbySnapshot(context.Background(), "QRS789", cached, time.Minute))

	resp := doRequest(t, env.ts, http.MethodGet, "/api/lobbies/QRS789", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "voting", body["game_state"])
}

func TestGetLobbyServesLiveState(t *testing.T) {
	srv := miniredis.RunT(t)
	cache := store.NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: srv.Addr()}))
	env := newTestEnv(t, envOptions{cache: cache})

	alice := dialWS(t, env)
	alice.send(msgCreateLobby, map[string]any{"player_name": "Alice"})
	alice.expect(msgLobbyCreated)
	alice.send(msgChatMessage, map[string]any{"message": "hello"})
	alice.expect(msgChatMessage)

	stale := game.Snapshot{RoomCode: "ABC123", Phase: game.PhaseVoting}
	require.NoError(t, cache.CacheLobbySnapshot(context.Background(), "ABC123", stale, time.Minute))

	resp := doRequest(t, env.ts, http.MethodGet, "/api/lobbies/ABC123", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "waiting", body["game_state"])
	require.Len(t, body["chat"], 1)
	assert.Equal(t, "hello", body["chat"].([]any)[0].(map[string]any)["message"])
}

func TestChatRefreshesCachedSnapshot(t *testing.T) {
	srv := miniredis.RunT(t)
	cache := store.NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: srv.Addr()}))
	env := newTestEnv(t, envOptions{cache: cache})

	alice := dialWS(t, env)
	alice.send(msgCreateLobby, map[string]any{"player_name": "Alice"})
	alice.expect(msgLobbyCreated)
	alice.send(msgChatMessage, map[string]any{"message": "hello"})
	alice.expect(msgChatMessage)

	assert.Eventually(t, func() bool {
		snapshot, ok, err := cache.GetCachedLobbySnapshot(context.Background(), "ABC123")
		return err == nil && ok && len(snapshot.Chat) == 1
	}, wsTimeout, 20*time.Millisecond)
}

func TestLobbySnapshotCachedAndEvicted(t *testing.T) {
	srv := miniredis.RunT(t)
	cache := store.NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: srv.Addr()}))
	env := newTestEnv(t, envOptions{cache: cache})

	alice := dialWS(t, env)
	alice.send(msgCreateLobby, map[string]any{"player_name": "Alice"})
	alice.expect(msgLobbyCreated)
	assert.Eventually(t, func() bool {
		return srv.Exists("lobby:ABC123")
	}, wsTimeout, 20*time.Millisecond)
	assert.Equal(t, 60*time.Second, srv.TTL("lobby:ABC123"))

	require.NoError(t, alice.conn.Close())
	assert.Eventually(t, func() bool {
		return !srv.Exists("lobby:ABC123")
	}, wsTimeout, 20*time.Millisecond)
}

func TestGetSession(t *testing.T) {
	sessions := new(mockSessionStore)
	env := newTestEnv(t, envOptions{sessions: sessions})

	session := store.Session{
		ID:        "s-1",
		RoomCode:  "ABC123",
		GameState: "results",
		Players:   []game.PlayerResult{{ID: "p1", Name: "Alice", Score: 3}},
	}
	sessions.On("GetGameSession", mock.Anything, "ABC123").Return(session, nil).Once()
	sessions.On("GetGameSession", mock.Anything, "NOPE00").Return(store.Session{}, store.ErrNotFound).Once()
	sessions.On("GetGameSession", mock.Anything, "DOWN00").Return(store.Session{}, store.ErrUnavailable).Once()
	sessions.On("GetGameSession", mock.Anything, "FAIL00").Return(store.Session{}, errors.New("boom")).Once()

	resp := doRequest(t, env.ts, http.MethodGet, "/api/sessions/ABC123", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "s-1", body["id"])
	assert.Equal(t, "results", body["game_state"])

	resp = doRequest(t, env.ts, http.MethodGet, "/api/sessions/NOPE00", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = doRequest(t, env.ts, http.MethodGet, "/api/sessions/DOWN00", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp = doRequest(t, env.ts, http.MethodGet, "/api/sessions/FAIL00", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	resp = doRequest(t, env.ts, http.MethodGet, "/api/sessions/bad!", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	sessions.AssertExpectations(t)
}

func TestGetPlayerStats(t *testing.T) {
	sessions := new(mockSessionStore)
	env := newTestEnv(t, envOptions{sessions: sessions})

	sessions.On("GetPlayerStats", mock.Anything, "p1").Return(store.PlayerStats{
		PlayerID:    "p1",
		PlayerName:  "Alice",
		GamesPlayed: 4,
		TotalScore:  9,
		BestScore:   4,
	}, nil).Once()
	sessions.On("GetPlayerStats", mock.Anything, "ghost").Return(store.PlayerStats{}, store.ErrNotFound).Once()

	resp := doRequest(t, env.ts, http.MethodGet, "/api/players/p1/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.EqualValues(t, 4, body["games_played"])
	assert.EqualValues(t, 4, body["best_score"])

	resp = doRequest(t, env.ts, http.MethodGet, "/api/players/ghost/stats", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	sessions.AssertExpectations(t)
}

func TestNoDatabaseLookupsAreNotFound(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	resp := doRequest(t, env.ts, http.MethodGet, "/api/sessions/ABC123", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = doRequest(t, env.ts, http.MethodGet, "/api/players/p1/stats", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGamePersistedOnCreateAndFinish(t *testing.T) {
	var (
		statsCalls atomic.Int32
		eventsMu   sync.Mutex
		events     = map[string]bool{}
	)
	sessions := new(mockSessionStore)
	sessions.On("SaveGameSession", mock.Anything, mock.Anything).Return(nil)
	sessions.On("RecordEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			eventsMu.Lock()
			events[args.String(2)] = true
			eventsMu.Unlock()
		}).
		Return(nil)
	sessions.On("SavePlayerStats", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { statsCalls.Add(1) }).
		Return(errors.New("db down"))
	env := newTestEnv(t, envOptions{sessions: sessions})

	alice, bob := seatTwo(t, env)
	alice.ws.send(msgStartGame, nil)
	alice.ws.expect(msgGameStarted)
	for round := 1; round <= 2; round++ {
		alice.ws.send(msgSubmitDrawing, map[string]any{"drawing_data": "a"})
		bob.ws.send(msgSubmitDrawing, map[string]any{"drawing_data": "b"})
		done := alice.ws.expectWhere(msgDrawingSubmitted, func(data map[string]any) bool {
			return data["all_submitted"] == true
		})
		lobby := lobbyOf(t, done)
		alice.ws.send(msgVoteDrawing, map[string]any{"drawing_id": drawingBy(t, lobby, bob.id, round)})
		bob.ws.send(msgVoteDrawing, map[string]any{"drawing_id": drawingBy(t, lobby, bob.id, round)})
		alice.ws.expect(msgRoundScored)
	}
	alice.ws.expect(msgGameFinished)

	assert.Eventually(t, func() bool {
		return statsCalls.Load() == 2
	}, wsTimeout, 20*time.Millisecond)
	sessions.AssertCalled(t, "SavePlayerStats", mock.Anything, bob.id, store.StatsDelta{
		PlayerName:  "Bob",
		GamesPlayed: 1,
		Score:       4,
	})
	sessions.AssertCalled(t, "SavePlayerStats", mock.Anything, alice.id, store.StatsDelta{
		PlayerName:  "Alice",
		GamesPlayed: 1,
		Score:       0,
	})

	eventsMu.Lock()
	assert.True(t, events["lobby_created"])
	assert.True(t, events["game_started"])
	assert.True(t, events["game_finished"])
	eventsMu.Unlock()

	// stats failures are swallowed; the room keeps working
	alice.ws.send(msgChatMessage, map[string]any{"message": "gg"})
	bob.ws.expect(msgChatMessage)
}

func TestCORS(t *testing.T) {
	cfg := testConfig()
	cfg.CORSOrigins = []string{"http://allowed.test"}
	env := newTestEnv(t, envOptions{cfg: cfg})

	resp := doRequestWithHeaders(t, env.ts, http.MethodGet, "/api/health", nil, map[string]string{
		"Origin": "http://allowed.test",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://allowed.test", resp.Header.Get("Access-Control-Allow-Origin"))

	resp = doRequestWithHeaders(t, env.ts, http.MethodGet, "/api/health", nil, map[string]string{
		"Origin": "http://evil.test",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
