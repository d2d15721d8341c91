package services

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownCartKind    = errors.New("unknown cart kind")
	ErrOutOfStock         = errors.New("product out of stock")
	ErrSubmissionInFlight = errors.New("a submission is already in progress")
	ErrFetchInFlight      = errors.New("a catalog request is already in progress")
	ErrNoMorePages        = errors.New("no more catalog pages")
	ErrProductNotListed   = errors.New("product is not in the browsed catalog")
)

// ValidationError names the field that stopped a submission before any
// network call was made.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	switch e.Field {
	case "customerName":
		return "Ingrese el nombre del cliente."
	case "customerId":
		return "Ingrese el CI del cliente."
	case "items":
		return "El carrito está vacío."
	default:
		return fmt.Sprintf("invalid %s", e.Field)
	}
}

const (
	networkMessage  = "Verifique su red e intente nuevamente."
	fallbackMessage = "Intente nuevamente."
)

// NetworkError means the order API could not be reached.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return networkMessage }

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerRejection means the order API answered without confirming.
type ServerRejection struct {
	Message string
	Err     error
}

func (e *ServerRejection) Error() string {
	if e.Message == "" {
		return fallbackMessage
	}
	return e.Message
}

func (e *ServerRejection) Unwrap() error { return e.Err }
