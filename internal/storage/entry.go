package storage

import (
	"time"
)

// KeyEntry is the public index record for one wrapped key
type KeyEntry struct {
	Name        string    `json:"name"`
	Size        int       `json:"size"`
	Fingerprint string    `json:"fingerprint"`
	Iterations  int       `json:"iterations"`
	Created     time.Time `json:"created"`
	Modified    time.Time `json:"modified"`
}

// Record pairs an index entry with its envelope JSON
type Record struct {
	Entry    KeyEntry
	Envelope []byte
}
