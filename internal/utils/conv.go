package utils

import (
	"math/rand"
	"strconv"
	"time"
)

// StringToInt converts string to int, returns 0 if error
func StringToInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}

var seededRand = rand.New(rand.NewSource(time.Now().UnixNano()))

const base36Chars = "0123456789abcdefghijklmnopqrstuvwxyz"

// RandBase36 returns a random radix-36 string of length n.
func RandBase36(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = base36Chars[seededRand.Intn(len(base36Chars))]
	}
	return string(b)
}
