package shader

import "io/fs"

// LibraryBuilderOption is a functional option applied to a library during construction via NewLibrary.
type LibraryBuilderOption func(*library)

// WithFS makes the library read shaders from a directory of another file system, such as
// os.DirFS for hot-editable shaders on disk.
//
// Parameters:
//   - fsys: the file system
//   - dir: the directory inside fsys holding the .wgsl files
//
// Returns:
//   - LibraryBuilderOption: a function that applies the file system option to a library
func WithFS(fsys fs.FS, dir string) LibraryBuilderOption {
	return func(l *library) {
		l.fsys = fsys
		l.dir = dir
	}
}
