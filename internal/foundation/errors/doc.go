// Package errors provides the classified error primitives used across assetpipe.
//
// Every error the pipeline surfaces to a caller is a ClassifiedError carrying a
// category, a severity, a retry strategy and a small context map. Callers branch
// on categories rather than on message text:
//
//   - validation: malformed asset names, empty source lists, invalid enum values
//   - conflict:   re-registration of a name with a different definition
//   - build:      unreadable sources, unsupported type/kind pairings
//   - filesystem: unwritable build or public directories
//   - internal:   broken invariants (raised as panics, never returned)
//
// Example usage:
//
//	err := errors.NewError(errors.CategoryBuild, "source unreadable").
//		WithContext("asset_name", name).
//		WithCause(readErr).
//		Build()
package errors
