package referral

import (
	"crypto/rand"
	"fmt"
)

// codeAlphabet omits 0/O, 1/I/L and lowercase so codes survive being read
// aloud or hand-typed.
const codeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// mintCode returns a random code string. 32^8 keeps the collision chance
// negligible, and Create's unique constraint catches the rest.
func mintCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
