package domain

import "errors"

// Error taxonomy for a sync run. The orchestrator classifies adapter and
// store failures into one of these kinds before surfacing them.
var (
	// ErrAuth means the vendor rejected or expired the credentials. The
	// orchestrator attempts one token refresh before giving up.
	ErrAuth = errors.New("vendor rejected credentials")
	// ErrFetch covers network failures, timeouts and non-2xx responses.
	ErrFetch = errors.New("vendor fetch failed")
	// ErrValidation means the payload shape did not match the vendor
	// contract. It aborts the run rather than silently under-importing.
	ErrValidation = errors.New("vendor payload validation failed")
	// ErrStore is a write failure. Rows already upserted stay committed;
	// the whole run is safe to retry because upserts are idempotent.
	ErrStore = errors.New("observation store write failed")

	// ErrIntegrationNotFound is returned when the user has no connected
	// integration for the requested vendor.
	ErrIntegrationNotFound = errors.New("integration not found")
	// ErrMissingCredentials is returned when an integration exists but
	// lacks the credentials its vendor requires.
	ErrMissingCredentials = errors.New("integration is missing required credentials")
)
