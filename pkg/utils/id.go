package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateID generates a random hex ID
func GenerateID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// MustGenerateID generates a random hex ID, panicking only if the
// system entropy source is unavailable.
func MustGenerateID() string {
	id, err := GenerateID()
	if err != nil {
		panic(err)
	}
	return id
}
