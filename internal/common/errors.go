// Package common defines sentinel errors shared by the capture, transcoding and
// upload layers of GuestLens. Callers should use errors.Is to match these values;
// producers wrap them with fmt.Errorf("%w: ...") to add detail.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Camera errors. Both are recovered locally: the pipeline keeps running degraded.
	ErrPermission = errors.New("camera access denied or unavailable")
	ErrCapability = errors.New("capability not supported")
	ErrNotReady   = errors.New("camera not ready")

	// Processing and persistence errors. These abort the single operation in progress.
	ErrTranscode = errors.New("transcode failed")
	ErrStorage   = errors.New("storage write failed")
	ErrMetadata  = errors.New("metadata commit failed")

	// Batch errors (some or all items of a selection failed).
	ErrPartialBatch = errors.New("partial batch failure")
)
