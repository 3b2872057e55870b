package utils

import (
	"math/rand"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var lettersNumbers = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")

const requestIDLength = 16

func randomCode(n int, keys []rune) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = keys[rand.Intn(len(keys))]
	}
	return string(b)
}

func GenerateRandomKey(n int) string {
	return randomCode(n, lettersNumbers)
}

func GenerateRandomKeyWithNanoid(n int) string {
	code, err := gonanoid.New(n)
	if err != nil {
		code = GenerateRandomKey(n)
	}
	return code
}

// GenerateRequestID id attached to every HTTP request
func GenerateRequestID() string {
	return GenerateRandomKeyWithNanoid(requestIDLength)
}
