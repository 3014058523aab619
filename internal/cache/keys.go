package cache

import (
	"strings"
	"time"

	"swearena-api/internal/config"
)

// Namespace is the Redis key prefix for the arena application.
const Namespace = "swearena"

// TTLClass represents a config-driven TTL bucket.
type TTLClass string

const (
	TTLShort  TTLClass = "short"
	TTLMedium TTLClass = "medium"
	TTLLong   TTLClass = "long"
)

// TTLSet normalises cache TTLs from config into time.Duration values.
type TTLSet struct {
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// NewTTLSet converts config TTLs (in seconds) into durations.
func NewTTLSet(cfg config.CacheTTL) TTLSet {
	return TTLSet{
		Short:  durationOrDefault(cfg.Short, 10*time.Second),
		Medium: durationOrDefault(cfg.Medium, time.Minute),
		Long:   durationOrDefault(cfg.Long, 5*time.Minute),
	}
}

func durationOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds < 0 {
		return 0
	}
	if seconds == 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// Duration returns the configured duration for the given TTL class.
func (t TTLSet) Duration(class TTLClass) time.Duration {
	switch class {
	case TTLShort:
		return t.Short
	case TTLMedium:
		return t.Medium
	case TTLLong:
		return t.Long
	default:
		return 0
	}
}

func formatKey(parts ...string) string {
	values := make([]string, 0, len(parts)+1)
	values = append(values, Namespace)
	for _, part := range parts {
		clean := strings.TrimSpace(part)
		if clean == "" {
			continue
		}
		values = append(values, clean)
	}
	return strings.Join(values, ":")
}

// SessionSummaryKey caches the latest event summary for one battle session.
func SessionSummaryKey(sessionID string) string {
	return formatKey("session", "summary", sessionID)
}

// SessionSummaryTTL picks the TTL class for session summaries.
func SessionSummaryTTL(set TTLSet) time.Duration {
	return set.Duration(TTLMedium)
}

// ConvRunsKey caches the ordered run keys recorded for one conversation.
func ConvRunsKey(convID string) string {
	return formatKey("conv", "runs", convID)
}

// ConvRunsTTL picks the TTL class for per-conversation run lists.
func ConvRunsTTL(set TTLSet) time.Duration {
	return set.Duration(TTLMedium)
}

// VoteCountKey caches vote tallies per model, refreshed by the mirror.
func VoteCountKey(modelName string) string {
	return formatKey("votes", modelName)
}

// VoteCountTTL picks the TTL class for vote tallies.
func VoteCountTTL(set TTLSet) time.Duration {
	return set.Duration(TTLLong)
}
