package storage

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"Fachada Principal.JPG":   "fachada-principal.jpg",
		"../../etc/passwd":        "passwd",
		`C:\fotos\recámara 1.png`: "recmara-1.png",
		"...":                     "file",
		"":                        "file",
	}
	for in, want := range cases {
		require.Equal(t, want, SanitizeFilename(in), in)
	}
	long := strings.Repeat("a", 200) + ".png"
	require.Len(t, SanitizeFilename(long), maxFilenameLen)
	require.True(t, strings.HasSuffix(SanitizeFilename(long), ".png"))
}

func TestMediaKeyScopedToProperty(t *testing.T) {
	propertyID := uuid.New()
	key := MediaKey(propertyID, "sala.jpg")
	require.True(t, BelongsToProperty(key, propertyID))
	require.False(t, BelongsToProperty(key, uuid.New()))
	require.True(t, strings.HasSuffix(key, "-sala.jpg"))
	require.NotEqual(t, key, MediaKey(propertyID, "sala.jpg"))
}

func TestDocumentKey(t *testing.T) {
	id := uuid.MustParse("7b0d5b1e-7f4a-4c59-9d61-2f4c1c1f0a11")
	require.Equal(t, "documents/contracts/7b0d5b1e-7f4a-4c59-9d61-2f4c1c1f0a11.pdf", DocumentKey("contracts", id))
}

func TestIsNotFound(t *testing.T) {
	require.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	require.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied"}))
}
