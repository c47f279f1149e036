package services

import (
	"context"
	"sort"
	"strconv"
)

// normaliseIDs drops zero values and duplicates and returns the ids in ascending order.
func normaliseIDs(values []uint) []uint {
	if len(values) == 0 {
		return []uint{}
	}

	seen := make(map[uint]struct{}, len(values))
	out := make([]uint, 0, len(values))
	for _, value := range values {
		if value == 0 {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// difference returns the members of a that are not in b, preserving order.
func difference(a, b []uint) []uint {
	exclude := make(map[uint]struct{}, len(b))
	for _, v := range b {
		exclude[v] = struct{}{}
	}
	out := []uint{}
	for _, v := range a {
		if _, ok := exclude[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}

func containsID(values []uint, target uint) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
