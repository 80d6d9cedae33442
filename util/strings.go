package util

// Coalesce returns the first non-zero value. Config defaults use it as
// "configured value, else fallback".
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}
