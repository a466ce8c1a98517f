package ssm

import (
	"fmt"

	"github.com/pkg/errors"
)

// InvalidArgumentError reports a caller mistake caught before any network
// activity: a missing required field or an argument that cannot be used.
// Remote errors are never converted to this type.
type InvalidArgumentError struct {
	Param  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Param, e.Reason)
}

// IsInvalidArgument reports whether err (or anything it wraps) is an
// InvalidArgumentError.
func IsInvalidArgument(err error) bool {
	var ia *InvalidArgumentError
	return errors.As(err, &ia)
}

func invalidArg(param, reason string) error {
	return &InvalidArgumentError{Param: param, Reason: reason}
}
