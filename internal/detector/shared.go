package detector

import (
	"sync"

	"github.com/CreateIntelligens/SimpleFaceBlur/internal/inference"
)

var (
	shared   *YOLOFace
	sharedMu sync.Mutex
)

// Shared returns the process-wide detector, loading the model through open on
// first use. A failed load is not cached, so a later call retries.
//
// The returned detector is read-only after construction: concurrent requests
// may call Detect on it, and none may change its configuration or runner.
func Shared(config Config, open func() (inference.Runner, error)) (*YOLOFace, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared != nil {
		return shared, nil
	}

	runner, err := open()
	if err != nil {
		return nil, err
	}

	shared = New(runner, config)
	return shared, nil
}

// CloseShared releases the process-wide detector, if one was loaded
func CloseShared() error {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared == nil {
		return nil
	}
	err := shared.Close()
	shared = nil
	return err
}
