package util

// Ptr returns a pointer to v, for optional fields such as speaker hints.
func Ptr[T any](v T) *T {
	return &v
}

// Deref returns *p, or the zero value when the optional field is unset.
func Deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
