package model

import (
	"errors"
)

var (
	ErrNoInstallation = errors.New("no BLAST+ installation detected")
	ErrNoQueries      = errors.New("no query files")
	ErrNoDatabases    = errors.New("no database files")
	ErrUnknownMode    = errors.New("unknown output mode")
	ErrMalformedHit   = errors.New("malformed tabular hit line")
	ErrUploadName     = errors.New("invalid upload file name")
	ErrJobInProgress  = errors.New("job already in progress")
)
