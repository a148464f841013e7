package wgpudev

import "log/slog"

// DeviceBuilderOption is a functional option applied to a WebGPU device during construction via NewDevice.
type DeviceBuilderOption func(*Device)

// WithLogger sets the logger used for hazard warnings and swap-chain events.
//
// Parameters:
//   - logger: the logger; nil keeps slog.Default()
//
// Returns:
//   - DeviceBuilderOption: a function that applies the logger option to a device
func WithLogger(logger *slog.Logger) DeviceBuilderOption {
	return func(d *Device) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithVSync sets the present mode used until the first Present call changes it.
//
// Parameters:
//   - enabled: true presents in FIFO mode, false presents immediately
//
// Returns:
//   - DeviceBuilderOption: a function that applies the present mode to a device
func WithVSync(enabled bool) DeviceBuilderOption {
	return func(d *Device) {
		d.vsync = enabled
	}
}

// WithFallbackAdapter forces the software fallback adapter when the platform offers one.
//
// Returns:
//   - DeviceBuilderOption: a function that requests the fallback adapter
func WithFallbackAdapter() DeviceBuilderOption {
	return func(d *Device) {
		d.forceFallback = true
	}
}
