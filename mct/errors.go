package mct

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// StatusOK is the status of a batch that ran to completion
	StatusOK = 0

	// StatusConfig is the status of a batch rejected before acquisition.
	// Vendor codes are negative or small positive integers, this is neither.
	StatusConfig = 1 << 30

	// StatusUnknown is the status of an error which carries no code
	StatusUnknown = StatusConfig + 1
)

var (
	// ErrConfig is matched by every *ConfigError with errors.Is
	ErrConfig = errors.New("mct: invalid batch configuration")

	// ErrBatchUsed is generated when Run is called on a batch which already ran
	ErrBatchUsed = errors.New("mct: batch has already been run")
)

// ConfigError lists the problems found when validating a batch
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return "mct: invalid batch configuration: " + strings.Join(e.Problems, "; ")
}

// Is makes errors.Is(err, ErrConfig) true
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// Code satisfies Coder
func (e *ConfigError) Code() int {
	return StatusConfig
}

func (e *ConfigError) add(format string, args ...interface{}) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// Coder is implemented by errors which carry an integer status, such as the
// driver errors of a frame grabber
type Coder interface {
	Code() int
}

// Status converts err to an integer status.  nil is StatusOK, errors which
// implement Coder report their own code, anything else is StatusUnknown.
func Status(err error) int {
	if err == nil {
		return StatusOK
	}
	var c Coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return StatusUnknown
}
