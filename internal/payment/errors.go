package payment

import "errors"

var (
	// ErrGatewayUnavailable is returned when the gateway cannot be reached,
	// times out or answers with a 5xx status.  Callers may retry.
	ErrGatewayUnavailable = errors.New("payment gateway: unavailable")

	// ErrGatewayRejected is returned when the gateway refuses the request
	// with a 4xx status.  Retrying the same request will not help.
	ErrGatewayRejected = errors.New("payment gateway: request rejected")

	// ErrInvalidResponse is returned when the gateway answers with a body
	// that cannot be decoded.
	ErrInvalidResponse = errors.New("payment gateway: invalid response")
)
