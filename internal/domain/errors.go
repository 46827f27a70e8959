package domain

import (
	"errors"
	"fmt"
)

// Provider identifies which external collaborator failed.
type Provider string

const (
	ProviderEmbedding   Provider = "embedding"
	ProviderVectorStore Provider = "vector-store"
	ProviderLLM         Provider = "llm"
)

// ErrFilteredIndexUnavailable signals that the store cannot serve a
// park-filtered search because the backing index is missing. The retriever
// recovers by over-fetching unfiltered; callers never see this error.
var ErrFilteredIndexUnavailable = errors.New("filtered index unavailable")

// ProviderError wraps a failed call to an external collaborator. It is the
// only error kind that propagates to the caller as a failed request.
type ProviderError struct {
	Provider Provider
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider unavailable: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError tags err with the collaborator it came from.
func NewProviderError(provider Provider, err error) error {
	return &ProviderError{Provider: provider, Err: err}
}
