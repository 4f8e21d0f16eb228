package app

import "fmt"

// DomainError is a service-level failure with an HTTP rendering. mapError
// in the transport layer turns one into a status, a stable machine-readable
// code, and a human message; Details carries optional structured context.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// domainError is the constructor the service methods use inline; keeping it
// terse keeps validation paths readable.
func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}
