package models

// UploadStatus is the progress of one UploadJob.
type UploadStatus string

const (
	UploadPending   UploadStatus = "pending"
	UploadUploaded  UploadStatus = "uploaded"
	UploadCommitted UploadStatus = "committed"
	UploadFailed    UploadStatus = "failed"
)

// Terminal reports whether no further transition is possible.
func (s UploadStatus) Terminal() bool {
	return s == UploadCommitted || s == UploadFailed
}

// UploadJob tracks the storage writes and metadata commit of one photo.
// Objects are always written before the row is inserted.
type UploadJob struct {
	ID            string
	OwnerID       string
	FullPath      string
	ThumbnailPath string
	Status        UploadStatus
	Err           error
}
