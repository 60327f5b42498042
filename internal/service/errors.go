package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/bankcards-api/internal/domain"
	"github.com/phrazzld/bankcards-api/internal/store"
)

// ServiceError wraps an unexpected failure with the service and operation
// it occurred in. It never carries a domain kind, so domain.KindOf reports
// it as KindInternal unless the wrapped error says otherwise.
type ServiceError struct {
	Service   string
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s service %s failed: %s: %v", e.Service, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s service %s failed: %s", e.Service, e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(service, operation, message string, err error) *ServiceError {
	return &ServiceError{
		Service:   service,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// Errors returned for missing constructor dependencies.
var errNilDependency = errors.New("dependency cannot be nil")

func nilDependency(name string) error {
	return fmt.Errorf("%s: %w", name, errNilDependency)
}

// Domain errors shared by the card services.
var (
	errCardNotFound = domain.Errorf(domain.ErrNotFound, "card not found")
	errUserNotFound = domain.Errorf(domain.ErrNotFound, "user not found")
)

// translateStoreError maps store not-found and duplicate errors onto
// domain kinds. Anything else becomes a ServiceError.
func translateStoreError(err error, service, operation string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrCardNotFound):
		return errCardNotFound
	case errors.Is(err, store.ErrUserNotFound):
		return errUserNotFound
	case errors.Is(err, store.ErrCardExists):
		return domain.NewError(domain.ErrConflict, "card with this number already exists", err)
	case errors.Is(err, store.ErrEmailExists):
		return domain.NewError(domain.ErrConflict, "user with this email already exists", err)
	case domain.KindOf(err) != domain.KindInternal:
		return err
	default:
		return NewServiceError(service, operation, "store operation failed", err)
	}
}
