package game

import (
	"crypto/rand"

	"github.com/google/uuid"
)

// IDGenerator hands out room codes and entity ids. Room codes are checked
// for collisions by the Registry, entity ids are uuids and are not.
type IDGenerator interface {
	RoomCode() string
	NewID() string
}

type randomIDs struct{}

func NewIDGenerator() IDGenerator {
	return randomIDs{}
}

const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const roomCodeLength = 6

func (randomIDs) RoomCode() string {
	buf := make([]byte, roomCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "AAAAAA"
	}
	for i := range buf {
		buf[i] = roomCodeAlphabet[int(buf[i])%len(roomCodeAlphabet)]
	}
	return string(buf)
}

func (randomIDs) NewID() string {
	return uuid.NewString()
}

// IsRoomCode reports whether code has the shape of a room code. Lookups are
// case-insensitive and generated codes avoid ambiguous characters, but any
// six upper-case letters or digits are accepted.
func IsRoomCode(code string) bool {
	code = NormalizeRoomCode(code)
	if len(code) != roomCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
