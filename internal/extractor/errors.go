package extractor

import "errors"

var (
	// ErrUnsupportedFormat indicates a format tag the extractor does not handle.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrCorruptDocument indicates a payload that cannot be decoded as its declared format.
	ErrCorruptDocument = errors.New("corrupt document payload")
)
