// Package asset models the identity side of the asset pipeline.
//
// An asset moves through three stages, each a plain value produced by a pure
// function of the previous one:
//
//	Blueprint      author supplied definition (name, ordered sources, kind, type)
//	Configuration  the Blueprint bound to a build strategy: Bundled, Mapped or Remote
//	Built          the record of a finished build: id, paths, version and HTML
//
// Asset identity is a 16 character digest of the ordered tuple
// (producer, name, type, source kind, sources...). It never depends on file
// contents, wall-clock time or the machine the pipeline runs on, so the same
// definition always lands on the same output path.
package asset
