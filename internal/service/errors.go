package service

import "errors"

// Sentinel errors shared by all services. Handlers map them onto HTTP
// statuses; services wrap them with context via fmt.Errorf("%w").
var (
	// ErrValidation — malformed input, rejected before any mutation.
	ErrValidation = errors.New("richiesta non valida")
	// ErrConflict — a row status precondition was violated (e.g. a concurrent
	// actor already approved or rejected one of the targeted rows).
	ErrConflict = errors.New("conflitto di stato")
	// ErrNotFound — unknown batch or row id.
	ErrNotFound = errors.New("risorsa non trovata")
)
