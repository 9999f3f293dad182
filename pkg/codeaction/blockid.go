package codeaction

import "github.com/google/uuid"

const (
	blockIDLength  = 6
	base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// GenerateBlockID returns a 6-character base-36 block id, regenerating
// on collision until exists reports false; with a nil exists the first
// id is returned. Retries are not bounded. Six base-36 characters give
// enough of a namespace that a single retry resolves essentially every
// real collision.
func GenerateBlockID(exists func(id string) bool) string {
	for {
		id := randomBase36(blockIDLength)
		if exists == nil || !exists(id) {
			return id
		}
	}
}

func randomBase36(n int) string {
	u := uuid.New()
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = base36Alphabet[int(u[i])%len(base36Alphabet)]
	}
	return string(out)
}
