package utils

import "fmt"

// FormatOrderNumber renders a per-tenant sequence number as the zero-padded
// business document number ("0001", "0002", ...). Sequences past 9999 keep
// growing without truncation.
func FormatOrderNumber(seq int64) string {
	return fmt.Sprintf("%04d", seq)
}

func UniqueSlice[T comparable](in []T) []T {
	seen := make(map[T]struct{}, len(in))
	out := make([]T, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
