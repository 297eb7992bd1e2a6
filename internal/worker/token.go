package worker

import "crypto/rand"

// NewAuthToken generates a fresh 256-bit token from a cryptographic RNG
// (spec §4.7). One token is generated per Pool at startup and shared by
// every worker of that pool.
func NewAuthToken() ([32]byte, error) {
	var tok [32]byte
	if _, err := rand.Read(tok[:]); err != nil {
		return tok, err
	}
	return tok, nil
}
