// Package schemasource owns the active statblock schema.
//
// A Registry loads a schema through a Loader, compiles it into a
// statparse.Parser and publishes both as an immutable Snapshot. Callers
// fetch the current snapshot per request, so a reload takes effect on the
// next parse while parses already running finish on the old one. A failed
// reload leaves the previous snapshot active.
//
// Three loaders exist:
//
//   - BuiltinLoader serves the schema embedded in package fieldspec.
//   - FileLoader reads a YAML or JSON schema file; FileWatcher reloads it
//     on change using fsnotify with debouncing.
//   - GitSource clones a repository with go-git and reads the schema from
//     the working copy. Poll pulls on an interval and reloads when HEAD
//     moves; the commit SHA becomes the snapshot revision.
package schemasource
