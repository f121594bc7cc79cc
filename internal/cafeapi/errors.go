package cafeapi

import (
	"errors"
	"fmt"
)

// CodeVerificationRequired is returned by order creation when the customer
// name matches existing members and no contact detail disambiguates it.
const CodeVerificationRequired = "VERIFICATION_REQUIRED"

// RejectionError is a well-formed envelope with success=false.
type RejectionError struct {
	Status  int
	Code    string
	Message string
}

func (e *RejectionError) Error() string {
	if e.Message != "" && e.Message != e.Code {
		return fmt.Sprintf("cafe api rejected request (%d): %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("cafe api rejected request (%d): %s", e.Status, e.Code)
}

// Reason is the text suitable for showing to a shopper.
func (e *RejectionError) Reason() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

// TransportError covers network faults and undecodable responses.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("cafe api %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func IsVerificationRequired(err error) bool {
	var rej *RejectionError
	return errors.As(err, &rej) && rej.Code == CodeVerificationRequired
}

// Reason extracts a shopper-facing message from any client error.
func Reason(err error) string {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason()
	}
	return "The café service is unavailable, please try again"
}
