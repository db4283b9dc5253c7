package utils

import "strings"

// SliceContains - utility-function to check wether an element is part of an array
func SliceContains[V comparable](search V, data []V) bool {
	for _, value := range data {
		if value == search {
			return true
		}
	}
	return false
}

// SliceContainsAny reports whether any of the searched values is part of data.
func SliceContainsAny[V comparable](search []V, data []V) bool {
	for _, value := range search {
		if SliceContains(value, data) {
			return true
		}
	}
	return false
}

// Filter keeps the elements for which keep returns true, preserving their order.
func Filter[V any](data []V, keep func(V) bool) []V {
	filtered := make([]V, 0, len(data))
	for _, value := range data {
		if keep(value) {
			filtered = append(filtered, value)
		}
	}
	return filtered
}

// JoinStrings concatenates string-like values with separator between them.
func JoinStrings[V ~string](values []V, separator string) string {
	var joined strings.Builder
	for i, value := range values {
		if i > 0 {
			joined.WriteString(separator)
		}
		joined.WriteString(string(value))
	}
	return joined.String()
}
