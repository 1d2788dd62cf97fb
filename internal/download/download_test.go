package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifyFileChecksum(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "payload.bin")
	payload := []byte("voxbot")
	require.NoError(t, os.WriteFile(path, payload, 0o644))

	sum := sha256.Sum256(payload)
	require.NoError(t, VerifyFileChecksum(path, hex.EncodeToString(sum[:])))
	require.Error(t, VerifyFileChecksum(path, "deadbeef"))
}

func TestDownloadFileWithExpectedChecksum(t *testing.T) {
	t.Parallel()

	payload := []byte("hello-world")
	sum := sha256.Sum256(payload)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	destination := filepath.Join(t.TempDir(), "model.bin")
	err := DownloadFile(context.Background(), Options{
		URL:            server.URL,
		Destination:    destination,
		ExpectedSHA256: hex.EncodeToString(sum[:]),
		NoProgress:     true,
		Retries:        1,
	})
	require.NoError(t, err)

	onDisk, err := os.ReadFile(destination)
	require.NoError(t, err)
	require.Equal(t, payload, onDisk)
}

func TestDownloadFileRejectsChecksumMismatch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("corrupted"))
	}))
	defer server.Close()

	destination := filepath.Join(t.TempDir(), "model.bin")
	err := DownloadFile(context.Background(), Options{
		URL:            server.URL,
		Destination:    destination,
		ExpectedSHA256: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		NoProgress:     true,
		Retries:        1,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "checksum mismatch")
	require.NoFileExists(t, destination)
	require.NoFileExists(t, destination+".part")
}

func TestDownloadFileRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	payload := []byte("eventually fine")
	sum := sha256.Sum256(payload)

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	destination := filepath.Join(t.TempDir(), "model.bin")
	err := DownloadFile(context.Background(), Options{
		URL:            server.URL,
		Destination:    destination,
		ExpectedSHA256: hex.EncodeToString(sum[:]),
		NoProgress:     true,
		Retries:        3,
	})
	require.NoError(t, err)
	require.EqualValues(t, 2, attempts.Load())
}

func TestDownloadFileRequiresURLAndDestination(t *testing.T) {
	t.Parallel()

	require.Error(t, DownloadFile(context.Background(), Options{Destination: "/tmp/x"}))
	require.Error(t, DownloadFile(context.Background(), Options{URL: "https://example.test"}))
}
