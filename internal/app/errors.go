package service

import "errors"

var (
	// ErrNotStarted is returned when an operation runs before Start.
	ErrNotStarted = errors.New("service not started")

	// ErrNoClaimTable is returned when Start runs without a claim table.
	ErrNoClaimTable = errors.New("no claim table configured")

	// ErrNoFlagSource is returned when Start runs without a flag store.
	ErrNoFlagSource = errors.New("no flag source configured")
)
