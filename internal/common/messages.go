package common

import "errors"

// UserMessage maps an error from the pipeline to the short text shown to the
// person operating the booth. Unknown errors yield "something went wrong".
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermission):
		return "camera unavailable"
	case errors.Is(err, ErrCapability):
		return "flash not supported on this camera"
	case errors.Is(err, ErrNotReady):
		return "camera not ready"
	case errors.Is(err, ErrTranscode):
		return "could not process photo"
	case errors.Is(err, ErrStorage):
		return "upload failed"
	case errors.Is(err, ErrMetadata):
		return "could not save photo details"
	case errors.Is(err, ErrorNotFound):
		return "photo not found"
	default:
		return "something went wrong"
	}
}
