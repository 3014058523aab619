package arena

import (
	"strings"

	"github.com/google/uuid"
)

// NewSessionID mints the identifier shared by both model slots of a battle.
// The token is URL-safe lowercase hex carrying 122 bits of randomness, so
// collisions across independent server workers are negligible. uuid panics
// only when the entropy source is exhausted, which we treat as fatal.
func NewSessionID() string {
	return compactUUID()
}

// NewConversationID mints the per-model-slot identifier. The two slots of one
// session always receive distinct tokens.
func NewConversationID() string {
	return compactUUID()
}

// NewSandboxID identifies a remote runtime instance. Runtimes may be reused
// across run rounds, so this never keys a log file on its own.
func NewSandboxID() string {
	return compactUUID()
}

func compactUUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
