package testlink

import "fmt"

// APIError is an API-level failure reported by the TestLink server. The
// server does not use XML-RPC faults for these; it returns an array of
// code/message structs as the method result instead, which the client detects
// and converts.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
}
