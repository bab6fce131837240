package utils

import (
	"fmt"

	"github.com/notargets/SlidingWindow/logutil"
	"github.com/notargets/gocca"
	"go.uber.org/zap"
)

// DefaultBackends lists device properties in order of preference
var DefaultBackends = []string{
	`{"mode": "OpenMP"}`,
	`{"mode": "CUDA", "device_id": 0}`,
	`{"mode": "Serial"}`,
}

// CreateDevice returns the first backend that initializes. With no
// arguments DefaultBackends is tried.
func CreateDevice(backends ...string) (*gocca.OCCADevice, error) {
	if len(backends) == 0 {
		backends = DefaultBackends
	}

	var lastErr error
	for _, props := range backends {
		device, err := gocca.NewDevice(props)
		if err == nil {
			logutil.GetLogger().Info("created device", zap.String("mode", device.Mode()))
			return device, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no device backend available (tried %d): %w", len(backends), lastErr)
}
