package kv

import "strconv"

func parseUint(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}
