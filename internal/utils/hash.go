package utils

import (
	"strconv"
)

// HashString reduces a string to a short radix-36 token with a rolling 32-bit
// hash (hash*31 + char, wrapping). It is deliberately cheap and unkeyed: it is
// used for the device fingerprint and the user-agent dedup signal, where
// stability matters and collision resistance does not.
func HashString(s string) string {
	var hash int32
	for _, r := range s {
		hash = (hash << 5) - hash + int32(r)
	}
	v := int64(hash)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 36)
}
