package transport

import "fmt"

// NetworkError reports a request or dial that never produced a usable reply.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ApplicationError reports a reply with success:false.
type ApplicationError struct {
	Op      string
	Message string
}

func (e *ApplicationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: request failed", e.Op)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// ProtocolError reports a broken persistent channel: an ERROR frame, an
// unexpected frame or a failed read.
type ProtocolError struct {
	Message string
	Err     error
}

func (e *ProtocolError) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("protocol error: %s: %v", e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("protocol error: %v", e.Err)
	default:
		return fmt.Sprintf("protocol error: %s", e.Message)
	}
}

func (e *ProtocolError) Unwrap() error { return e.Err }
