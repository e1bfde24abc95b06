package scanning

import "fmt"

// AuthError means a backend call rejected the bearer credential.
type AuthError struct {
	Endpoint string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("credential rejected by %s", e.Endpoint)
}

// NetworkError wraps a transport-level failure of a scan or confirm call.
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("calling %s: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ScanFailedError means the scan endpoint answered but could not read the
// image (success:false). The capture workflow recovers by re-capturing.
type ScanFailedError struct {
	Message string
}

func (e *ScanFailedError) Error() string {
	if e.Message == "" {
		return "scan failed"
	}
	return e.Message
}

// ConfirmFailedError means the confirm endpoint answered success:false.
// Session state and edited data survive so the user can retry confirmation
// without re-scanning.
type ConfirmFailedError struct {
	Message string
}

func (e *ConfirmFailedError) Error() string {
	if e.Message == "" {
		return "confirm failed"
	}
	return e.Message
}
