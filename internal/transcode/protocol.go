package transcode

// Messages exchanged with the worker goroutine. Only these values cross the
// worker boundary.

type request struct {
	ID        uint64
	ImageData []byte
	FileName  string
	reply     chan<- response
}

type response struct {
	ID      uint64
	Success bool
	Result  *workerResult
	Error   string
}

type workerResult struct {
	Variants []encodedVariant
}

type encodedVariant struct {
	Blob   []byte
	Type   string
	Tier   Tier
	Width  int
	Height int
}
