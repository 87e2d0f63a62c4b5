// Package services implements photo listing, deletion and album linking on
// top of the repositories and the object store.
package services

import "github.com/dmitrijs2005/guestlens/internal/upload"

// BatchObserver is notified of every batch item outcome.
type BatchObserver interface {
	ObserveBatchItem(outcome string)
}

func observeItems(o BatchObserver) func(upload.ItemOutcome) {
	if o == nil {
		return nil
	}
	return func(it upload.ItemOutcome) { o.ObserveBatchItem(string(it.Outcome)) }
}
