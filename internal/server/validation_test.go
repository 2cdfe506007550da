package server

import (
	"encoding/json"
	"strings"
	"testing"

	"sketch-party/internal/game"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateText(t *testing.T) {
	name, err := validateName("  Ada   Lovelace ")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", name)

	name, err = validateName("Zoë")
	require.NoError(t, err)
	assert.Equal(t, "Zoë", name)

	_, err = validateName(strings.Repeat("a", maxNameLength+1))
	assert.EqualError(t, err, "name must be 20 characters or fewer")

	_, err = validateName("<script>")
	assert.EqualError(t, err, "name contains unsupported characters")

	_, err = validateWord("   ")
	assert.EqualError(t, err, "word is required")

	msg, err := validateChat("nice one 🎨")
	require.NoError(t, err)
	assert.Equal(t, "nice one 🎨", msg)

	_, err = validateChat("bell\u0007")
	assert.Error(t, err)
}

func TestDecodePayload(t *testing.T) {
	registerValidators()

	var join joinLobbyPayload
	err := decodePayload(json.RawMessage(`{"room_code":"abc123","player_name":"Bob"}`), &join)
	require.NoError(t, err)
	assert.Equal(t, "abc123", join.RoomCode)

	err = decodePayload(json.RawMessage(`{"room_code":"abc","player_name":"Bob"}`), &join)
	assert.ErrorIs(t, err, game.ErrInvalidInput)
	assert.Contains(t, err.Error(), "room code must be 6 letters or digits")

	var word submitWordPayload
	err = decodePayload(nil, &word)
	assert.ErrorIs(t, err, game.ErrInvalidInput)
	assert.Contains(t, err.Error(), "word is required")

	err = decodePayload(json.RawMessage(`[1,2]`), &word)
	assert.ErrorIs(t, err, game.ErrInvalidInput)
	assert.Contains(t, err.Error(), "malformed payload")

	var drawing submitDrawingPayload
	err = decodePayload(json.RawMessage(`{"drawing_data":{"strokes":[[0,0],[1,1]]}}`), &drawing)
	require.NoError(t, err)
	assert.JSONEq(t, `{"strokes":[[0,0],[1,1]]}`, string(drawing.DrawingData))

	var ready setReadyPayload
	require.NoError(t, decodePayload(json.RawMessage(`{"ready":true}`), &ready))
	assert.True(t, ready.Ready)

	var create createLobbyPayload
	err = decodePayload(json.RawMessage(`{"player_name":"Al","settings":{"drawing_time":30,"max_players":4,"extra":{"theme":"animals"}}}`), &create)
	require.NoError(t, err)
	assert.Equal(t, 30, create.Settings.DrawingTime)
	assert.Equal(t, "animals", create.Settings.Extra["theme"])
}

func TestFinalStandingsSortedByScore(t *testing.T) {
	in := []game.PlayerResult{
		{ID: "a", Score: 1},
		{ID: "b", Score: 3},
		{ID: "c", Score: 1},
	}
	out := finalStandings(in)
	assert.Equal(t, []string{"b", "a", "c"}, []string{out[0].ID, out[1].ID, out[2].ID})
	assert.Equal(t, "a", in[0].ID)
}
