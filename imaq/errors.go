package imaq

import "fmt"

// Error is a status code reported by the sessions in this package.
// Hardware sessions pass their vendor codes through unchanged; these are
// only produced by Ring and Playback.
type Error int

const (
	// ErrTimedOut is generated when a frame did not arrive within Timeout
	ErrTimedOut Error = 1

	// ErrBufferOverwritten is generated when the requested frame has been
	// evicted from the ring and the policy is OverwriteFail
	ErrBufferOverwritten Error = 2

	// ErrSessionClosed is generated by every copy after Close
	ErrSessionClosed Error = 3

	// ErrFrameUnavailable is generated when a frame can never be produced
	ErrFrameUnavailable Error = 4

	// ErrBadGeometry is generated when a frame source does not hold 128x128 images
	ErrBadGeometry Error = 5
)

// ErrCodes is a map of error codes to their names
var ErrCodes = map[Error]string{
	0:                    "IMAQ_SUCCESS",
	ErrTimedOut:          "IMAQ_ERR_TIMED_OUT",
	ErrBufferOverwritten: "IMAQ_ERR_BUFFER_OVERWRITTEN",
	ErrSessionClosed:     "IMAQ_ERR_SESSION_CLOSED",
	ErrFrameUnavailable:  "IMAQ_ERR_FRAME_UNAVAILABLE",
	ErrBadGeometry:       "IMAQ_ERR_BAD_GEOMETRY",
}

func (e Error) Error() string {
	if s, ok := ErrCodes[e]; ok {
		return fmt.Sprintf("%d - %s", e, s)
	}
	return fmt.Sprintf("%d - UNKNOWN_ERROR_CODE", e)
}

// Code returns the integer status, satisfying mct.Coder
func (e Error) Code() int {
	return int(e)
}

// Err returns nil for a zero status code or an Error for any other
func Err(code int) error {
	if code == 0 {
		return nil
	}
	return Error(code)
}
