package usecase

import (
	"parks-rag/internal/domain"
)

// historyDetectionWindow bounds how far back park detection looks.
const historyDetectionWindow = 6

// ParkContextResolver determines which park, if any, the conversation is
// currently about. Resolution is a pure function of its inputs plus the
// read-only registry.
type ParkContextResolver interface {
	// Resolve returns the active park code, or "" when nothing matches and
	// retrieval should run unfiltered across all parks.
	Resolve(question string, history []domain.Turn, explicitHint string) string
}

type parkContextResolver struct {
	registry *domain.ParkRegistry
}

// NewParkContextResolver creates a resolver over the given registry.
func NewParkContextResolver(registry *domain.ParkRegistry) ParkContextResolver {
	return &parkContextResolver{registry: registry}
}

// Resolve applies the disambiguation priority order, first match wins:
//  1. the current question, so an explicit park name always overrides
//     history and enables park switching mid-conversation
//  2. user turns in recent history, most recent first; assistant text may
//     mention several parks for comparison and must not steer detection
//  3. the most recent assistant turn, only when it names exactly one
//     distinct park
//  4. the caller-supplied hint, lowest priority because it is stale
//     relative to in-text signals
func (r *parkContextResolver) Resolve(question string, history []domain.Turn, explicitHint string) string {
	if code, ok := r.registry.Find(question); ok {
		return code
	}

	recent := history
	if len(recent) > historyDetectionWindow {
		recent = recent[len(recent)-historyDetectionWindow:]
	}

	for i := len(recent) - 1; i >= 0; i-- {
		if recent[i].Role != domain.RoleUser {
			continue
		}
		if code, ok := r.registry.Find(recent[i].Content); ok {
			return code
		}
	}

	for i := len(recent) - 1; i >= 0; i-- {
		if recent[i].Role != domain.RoleAssistant {
			continue
		}
		if codes := r.registry.FindAll(recent[i].Content); len(codes) == 1 {
			return codes[0]
		}
		// Two or more parks is ambiguous; only the latest assistant turn
		// counts either way.
		break
	}

	return explicitHint
}
