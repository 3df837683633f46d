package models

import "errors"

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrJobExists         = errors.New("job already exists")
	ErrSiteNotFound      = errors.New("site not found")
	ErrVersionConflict   = errors.New("job was modified concurrently")
	ErrLeaseHeld         = errors.New("job is leased by another worker")
	ErrInvalidTransition = errors.New("invalid post status transition")
	ErrInvalidID         = errors.New("invalid identifier")
)
