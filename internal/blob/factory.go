package blob

import (
	"fmt"
	"sync"

	"tariffstack/internal/config"
)

var (
	singletonMu sync.Mutex
	singleton   Backend
)

// New constructs the Backend named by cfg.Storage.Backend ("local" or
// "s3"). Config validation (§ ambient stack) guarantees Backend is one of
// these two and that an "s3" backend has a bucket.
func New(cfg config.StorageConfig) (Backend, error) {
	switch cfg.Backend {
	case "local":
		return NewLocal(cfg.Path)
	case "s3":
		return NewS3(S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Init constructs the backend named by cfg and installs it as the
// process-wide singleton, per spec.md §3: "the blob storage backend is a
// process-wide singleton selected at startup by configuration." Acquired
// once at startup (cmd/tariffctl), never mid-request (§5).
func Init(cfg config.StorageConfig) error {
	b, err := New(cfg)
	if err != nil {
		return err
	}
	singletonMu.Lock()
	defer singletonMu.Unlock()
	singleton = b
	return nil
}

// SetForTest installs b as the singleton directly, bypassing Init's
// config-driven construction, so tests can parameterize the backend (§9
// design note: "the storage backend singleton is acceptable but must be
// parameterised for tests").
func SetForTest(b Backend) func() {
	singletonMu.Lock()
	prev := singleton
	singleton = b
	singletonMu.Unlock()
	return func() {
		singletonMu.Lock()
		singleton = prev
		singletonMu.Unlock()
	}
}

// Current returns the process-wide singleton installed by Init or
// SetForTest. Panics if no backend has been installed, since every
// caller of Current runs after startup wiring by construction.
func Current() Backend {
	singletonMu.Lock()
	defer singletonMu.Unlock()
	if singleton == nil {
		panic("blob: Current() called before Init/SetForTest")
	}
	return singleton
}
