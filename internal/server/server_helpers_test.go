package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"sketch-party/internal/config"
	"sketch-party/internal/game"
	"sketch-party/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// fixedCodes hands out the queued room codes first, then numbered ones.
type fixedCodes struct {
	mu    sync.Mutex
	codes []string
	next  int
}

func (f *fixedCodes) RoomCode() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.codes) > 0 {
		code := f.codes[0]
		f.codes = f.codes[1:]
		return code
	}
	f.next++
	return fmt.Sprintf("Z%05d", f.next)
}

func (f *fixedCodes) NewID() string {
	return uuid.NewString()
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.CacheTTLSeconds = 60
	return cfg
}

type testEnv struct {
	srv *Server
	ts  *httptest.Server
}

type envOptions struct {
	cfg      config.Config
	sessions store.SessionStore
	cache    store.SnapshotCache
	codes    []string
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	cfg := opts.cfg
	if cfg.Port == "" {
		cfg = testConfig()
	}
	codes := opts.codes
	if len(codes) == 0 {
		codes = []string{"ABC123"}
	}
	registry := game.NewRegistry(game.Settings{
		DrawingTime: cfg.DrawingSeconds,
		MaxPlayers:  cfg.MaxPlayers,
	},
		game.WithIDGenerator(&fixedCodes{codes: codes}),
		game.WithShuffler(game.NewShuffler(1)),
	)
	srv := New(registry, opts.sessions, opts.cache, cfg)
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return &testEnv{srv: srv, ts: ts}
}

func doRequest(t *testing.T, ts *httptest.Server, method, path string, payload any) *http.Response {
	t.Helper()
	return doRequestWithHeaders(t, ts, method, path, payload, nil)
}

func doRequestWithHeaders(t *testing.T, ts *httptest.Server, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

type mockSessionStore struct {
	mock.Mock
}

func (m *mockSessionStore) SaveGameSession(ctx context.Context, record game.SessionRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockSessionStore) GetGameSession(ctx context.Context, roomCode string) (store.Session, error) {
	args := m.Called(ctx, roomCode)
	return args.Get(0).(store.Session), args.Error(1)
}

func (m *mockSessionStore) SavePlayerStats(ctx context.Context, playerID string, delta store.StatsDelta) error {
	args := m.Called(ctx, playerID, delta)
	return args.Error(0)
}

func (m *mockSessionStore) GetPlayerStats(ctx context.Context, playerID string) (store.PlayerStats, error) {
	args := m.Called(ctx, playerID)
	return args.Get(0).(store.PlayerStats), args.Error(1)
}

func (m *mockSessionStore) RecordEvent(ctx context.Context, record game.SessionRecord, eventType string, payload any) error {
	args := m.Called(ctx, record, eventType, payload)
	return args.Error(0)
}
