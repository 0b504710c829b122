package utils

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}

// Value dereferences v, giving the zero value for nil.
func Value[T any](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}

// NonEmpty returns nil for "" so optional profile fields serialise as null.
func NonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
