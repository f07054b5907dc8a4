package exporter

import (
	"errors"
)

// Error classes for export failures. Callers branch on these with errors.Is;
// the wrapped message carries the operational detail.
var (
	// ErrValidation marks a rejected edit descriptor or output parameter.
	ErrValidation = errors.New("validation failed")

	// ErrSource marks a source open, probe or decode failure.
	ErrSource = errors.New("source error")

	// ErrBackgroundAsset marks an undecodable or unusable background asset.
	ErrBackgroundAsset = errors.New("background asset error")

	// ErrEncoderUnavailable marks the absence of any usable encoder backend.
	ErrEncoderUnavailable = errors.New("no encoder available")

	// ErrEncoding marks an encoder session failure (begin, frame push or flush).
	ErrEncoding = errors.New("encoding error")

	// ErrCancelled marks a cooperative cancellation observed at a frame
	// boundary. The export produced no output.
	ErrCancelled = errors.New("export cancelled")
)
