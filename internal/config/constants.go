package config

import "time"

const (
	// AI request timeout
	RequestTimeout = 90 * time.Second

	// Liveness probe timeout used when saving a model configuration
	ConnectionTestTimeout = 15 * time.Second

	// Detached remote writes (deletes, feedback) get their own deadline
	DetachedWriteTimeout = 10 * time.Second

	// Image model used for the optional generated illustration
	IllustrationModel = "gemini-2.5-flash-image"

	// Local persistence slot: current generation key and size bound.
	// The bound mirrors the 5MB browser-storage class of quota the slot
	// is designed to stay under; sessions and images never go in it.
	StorageKey   = "whitecard-cloud-storage-v6"
	MaxSlotBytes = 5 << 20
)

// LegacyStorageKeys are superseded slot generations, proactively purged
// at startup and again when a quota error is recognized.
var LegacyStorageKeys = []string{
	"whitecard-storage-v1",
	"whitecard-storage-v2",
	"whitecard-storage-v3",
	"whitecard-storage-v4",
	"whitecard-cloud-storage-v5",
}
