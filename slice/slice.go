package slice

func Map[T any, U any](input []T, fn func(T) U) []U {
	result := make([]U, len(input))
	for i, v := range input {
		result[i] = fn(v)
	}
	return result
}

func Find[T any](input []T, pred func(T) bool) (T, bool) {
	for _, v := range input {
		if pred(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// Filter returns the elements matching pred, in order.
func Filter[T any](input []T, pred func(T) bool) []T {
	var result []T
	for _, v := range input {
		if pred(v) {
			result = append(result, v)
		}
	}
	return result
}
