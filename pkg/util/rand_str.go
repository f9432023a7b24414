package util

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	alnum = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	lower = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// RandStr returns a random alphanumeric string of length n. It panics only
// if the system random source fails, which nanoid treats as unrecoverable
func RandStr(n int) string {
	return gonanoid.MustGenerate(alnum, n)
}

// RandLower is like RandStr but restricted to lowercase letters and digits
func RandLower(n int) string {
	return gonanoid.MustGenerate(lower, n)
}
