package broker

import (
	"crypto/rand"
	"math/big"
)

// codeAlphabet excludes visually confusable characters: I, O, 0, 1.
const codeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

const codeLength = 6

// generateRoomCode returns a fresh, uniformly random six-character room
// code, retrying on the (astronomically unlikely) case that it already
// names a live room.
func (h *Hub) generateRoomCode() (string, error) {
	for {
		code, err := randomCode()
		if err != nil {
			return "", err
		}
		if _, exists := h.rooms[code]; !exists {
			return code, nil
		}
	}
}

func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", newError("generate room code", "", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// canonicalizeCode upper-cases a caller-supplied room code so lookups
// are case-insensitive on input.
func canonicalizeCode(code string) string {
	out := make([]byte, len(code))
	for i := 0; i < len(code); i++ {
		c := code[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
