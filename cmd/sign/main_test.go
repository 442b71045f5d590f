package main

import (
	"crypto/ed25519"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/debemdeboas/the-draftroom/internal/auth/testdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrivateKey(t *testing.T) {
	key, err := parsePrivateKey([]byte(testdata.TestPrivateKeyPEM))
	require.NoError(t, err)

	sig := ed25519.Sign(key, testdata.TestChallenge)
	assert.True(t, ed25519.Verify(key.Public().(ed25519.PublicKey), testdata.TestChallenge, sig))
}

func TestParsePrivateKey_Invalid(t *testing.T) {
	_, err := parsePrivateKey([]byte("not a pem"))
	assert.Error(t, err)

	_, err = parsePrivateKey([]byte(testdata.TestPublicKeyPEM))
	assert.Error(t, err)
}

func TestFetchChallenge(t *testing.T) {
	want := base64.StdEncoding.EncodeToString(testdata.TestChallenge)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/challenge", r.URL.Path)
		w.Write([]byte(`{"challenge":"` + want + `"}`))
	}))
	defer server.Close()

	got, err := fetchChallenge(server.URL + "/")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFetchChallenge_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := fetchChallenge(server.URL)
	assert.ErrorContains(t, err, "status 500")
}
