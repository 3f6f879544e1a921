// Package patch holds helpers for applying partial updates, where a nil
// pointer means "field not supplied".
package patch

// Coalesce returns the value pointed to by ptr if it's not nil, otherwise returns fallback
func Coalesce[T any](ptr *T, fallback T) T {
	if ptr != nil {
		return *ptr
	}
	return fallback
}

// Ptr returns a pointer to v. Handy for building patches in callers and tests.
func Ptr[T any](v T) *T {
	return &v
}
