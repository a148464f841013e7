package loader

import "log/slog"

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithWorkers sets the maximum number of decode workers.
//
// Parameters:
//   - n: the worker count; values below 1 keep the default of one worker per CPU
//
// Returns:
//   - LoaderBuilderOption: a function that applies the worker option to a loader
func WithWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithMaxTextureSize caps the larger side of decoded images. Larger images are scaled down
// preserving their aspect ratio.
//
// Parameters:
//   - size: the largest allowed width or height in pixels, 0 for no limit
//
// Returns:
//   - LoaderBuilderOption: a function that applies the size limit to a loader
func WithMaxTextureSize(size int) LoaderBuilderOption {
	return func(l *loader) {
		l.maxTextureSize = max(size, 0)
	}
}

// WithLogger sets the logger for load summaries.
func WithLogger(logger *slog.Logger) LoaderBuilderOption {
	return func(l *loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}
