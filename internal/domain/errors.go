package domain

import "errors"

var (
	// ErrConfiguration means no credential is registered for a provider.
	ErrConfiguration = errors.New("provider not configured")
	// ErrUpstream means the provider call failed or returned an unexpected body.
	ErrUpstream = errors.New("upstream provider error")
	// ErrMapping means a single provider item could not be mapped to a draft.
	ErrMapping = errors.New("article mapping failed")
	// ErrNoProviderSelected is returned when an ingestion run names no providers.
	ErrNoProviderSelected = errors.New("no provider selected")
)
