package soft

import "log/slog"

// DeviceBuilderOption is a functional option applied to a software device during construction via NewDevice.
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

// WithDrawLog enables the context draw log from creation.
//
// Returns:
//   - DeviceBuilderOption: a function that enables the draw log on a device
func WithDrawLog() DeviceBuilderOption {
	return func(d *Device) {
		d.logDraws = true
	}
}
