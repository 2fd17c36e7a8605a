package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFingerprintOrderIndependent(t *testing.T) {
	a := Fingerprint("GET", "https://api.example.com/search", map[string]string{
		"q":    "plumber",
		"city": "austin",
		"page": "2",
	})
	b := Fingerprint("GET", "https://api.example.com/search", map[string]string{
		"page": "2",
		"city": "austin",
		"q":    "plumber",
	})
	require.Equal(t, a, b)
}

func TestFingerprintDistinguishesRequests(t *testing.T) {
	base := Fingerprint("GET", "https://api.example.com/search", map[string]string{"q": "plumber"})

	t.Run("DifferentParams", func(t *testing.T) {
		other := Fingerprint("GET", "https://api.example.com/search", map[string]string{"q": "roofer"})
		require.NotEqual(t, base, other)
	})

	t.Run("DifferentTarget", func(t *testing.T) {
		other := Fingerprint("GET", "https://api.example.com/detail", map[string]string{"q": "plumber"})
		require.NotEqual(t, base, other)
	})

	t.Run("DifferentMethod", func(t *testing.T) {
		other := Fingerprint("POST", "https://api.example.com/search", map[string]string{"q": "plumber"})
		require.NotEqual(t, base, other)
	})
}

func TestFingerprintNormalizesMethod(t *testing.T) {
	require.Equal(t,
		Fingerprint("get", "https://api.example.com", nil),
		Fingerprint("GET", "https://api.example.com", nil))
}
