package control

import (
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// syntheticID builds the anonymous-describe id of spec.md §4.4:
// "(generated from <basename>:<line> <16-hex-random>)". It is stable
// within one evaluation but deliberately not reproducible across runs.
func syntheticID(file string, line int) string {
	return fmt.Sprintf("(generated from %s:%d %s)", filepath.Base(file), line, randomHex8())
}

// randomHex8 draws entropy from a v4 UUID rather than crypto/rand
// directly, for parity with the rest of this codebase's id generation.
func randomHex8() string {
	id := uuid.New()
	return hex.EncodeToString(id[:8])
}
