package quant

import "errors"

// Error kinds surfaced by the codecs. Callers can test them with errors.Is;
// every failure aborts the whole call with no partial result.
var (
	// ErrDomain marks input values outside the codec's value domain:
	// non-finite values for linear quantization, negative or non-finite
	// values for logarithmic quantization.
	ErrDomain = errors.New("value outside quantization domain")

	// ErrInvalidArgument marks an unrecognized round mode or integer kind.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPrecondition marks a structural precondition failure, such as a
	// slicing axis beyond the tensor's rank.
	ErrPrecondition = errors.New("precondition failed")
)
