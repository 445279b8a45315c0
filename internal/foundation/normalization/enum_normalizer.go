package normalization

import (
	foundationerrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
)

// EnumNormalizer pairs a Normalizer with the enumeration's display name so
// strict parsing can fail with a classified InvalidEnumValue error.
type EnumNormalizer[T comparable] struct {
	normalizer *Normalizer[T]
	enumName   string
}

// NewEnumNormalizer creates an enum normalizer with descriptive error messages.
func NewEnumNormalizer[T comparable](enumName string, values map[string]T, defaultValue T) *EnumNormalizer[T] {
	return &EnumNormalizer[T]{
		normalizer: NewNormalizer(values, defaultValue),
		enumName:   enumName,
	}
}

// NewCustomEnumNormalizer is NewEnumNormalizer with a caller supplied normalization Func.
func NewCustomEnumNormalizer[T comparable](enumName string, values map[string]T, defaultValue T, fn Func) *EnumNormalizer[T] {
	return &EnumNormalizer[T]{
		normalizer: WithCustomNormalizer(values, defaultValue, fn),
		enumName:   enumName,
	}
}

// Normalize converts raw to an enum value, returning the default on invalid input.
func (e *EnumNormalizer[T]) Normalize(raw string) T {
	return e.normalizer.Normalize(raw)
}

// Parse converts raw to an enum value. In strict mode an unknown value is a
// validation error; in lenient mode it yields the default value and no error.
func (e *EnumNormalizer[T]) Parse(raw string, strict bool) (T, error) {
	if value, ok := e.normalizer.Lookup(raw); ok {
		return value, nil
	}
	if strict {
		var zero T
		return zero, foundationerrors.InvalidEnumValue(e.enumName, raw, e.normalizer.ValidKeys()).Build()
	}
	return e.normalizer.defaultValue, nil
}

// IsValid reports whether raw names a member of the enumeration.
func (e *EnumNormalizer[T]) IsValid(raw string) bool {
	_, ok := e.normalizer.Lookup(raw)
	return ok
}

// ValidValues returns all valid enum keys for documentation/help.
func (e *EnumNormalizer[T]) ValidValues() []string {
	return e.normalizer.ValidKeys()
}
