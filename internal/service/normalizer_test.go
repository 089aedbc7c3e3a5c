package service

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk error")
}

func TestNormalizeTextArtifact(t *testing.T) {
	content := "My essay about concurrency.\nGoroutines are cheap."

	result := NormalizeArtifact(Artifact{
		Name:      "essay.txt",
		MediaType: "text/plain",
		SizeBytes: int64(len(content)),
		Reader:    strings.NewReader(content),
	})

	require.Equal(t, content, result.Text)
	require.Nil(t, result.Image)
}

func TestNormalizeMarkdownArtifact(t *testing.T) {
	content := "# Report\n\nFindings below."

	result := NormalizeArtifact(Artifact{
		Name:      "report.md",
		MediaType: "text/markdown",
		SizeBytes: int64(len(content)),
		Reader:    strings.NewReader(content),
	})

	require.Equal(t, content, result.Text)
}

func TestNormalizeSmallImageInlinesContent(t *testing.T) {
	payload := bytes.Repeat([]byte{0xFF, 0xD8, 0xFF}, 512)

	result := NormalizeArtifact(Artifact{
		Name:      "diagram.jpg",
		MediaType: "image/jpeg",
		SizeBytes: int64(len(payload)),
		Reader:    bytes.NewReader(payload),
	})

	require.NotNil(t, result.Image)
	require.Equal(t, "image/jpeg", result.Image.MimeType)
	require.Equal(t, base64.StdEncoding.EncodeToString(payload), result.Image.Base64)
	require.NotEmpty(t, result.Text)
}

func TestNormalizeOversizedImageDegrades(t *testing.T) {
	result := NormalizeArtifact(Artifact{
		Name:      "photo.jpg",
		MediaType: "image/jpeg",
		SizeBytes: 5 << 20,
		Reader:    bytes.NewReader(nil),
	})

	require.Nil(t, result.Image)
	require.Contains(t, result.Text, "too large")
}

func TestNormalizeImageAtBoundaryStillInlines(t *testing.T) {
	payload := bytes.Repeat([]byte{0x01}, 16)

	result := NormalizeArtifact(Artifact{
		Name:      "boundary.png",
		MediaType: "image/png",
		SizeBytes: MaxInlineImageBytes,
		Reader:    bytes.NewReader(payload),
	})

	require.NotNil(t, result.Image)
}

func TestNormalizeImageReadFailureDegrades(t *testing.T) {
	result := NormalizeArtifact(Artifact{
		Name:      "broken.png",
		MediaType: "image/png",
		SizeBytes: 1024,
		Reader:    failingReader{},
	})

	require.Nil(t, result.Image)
	require.Contains(t, result.Text, "could not be encoded")
}

func TestNormalizeDocumentArtifact(t *testing.T) {
	result := NormalizeArtifact(Artifact{
		Name:      "thesis.pdf",
		MediaType: "application/pdf",
		SizeBytes: 2048,
		Reader:    bytes.NewReader([]byte("%PDF-1.7")),
	})

	require.Nil(t, result.Image)
	require.Contains(t, result.Text, "thesis.pdf")
	require.Contains(t, result.Text, "not extracted")
}

func TestNormalizeArchiveArtifact(t *testing.T) {
	result := NormalizeArtifact(Artifact{
		Name:      "project.zip",
		MediaType: "application/zip",
		SizeBytes: 4096,
		Reader:    bytes.NewReader([]byte("PK")),
	})

	require.Nil(t, result.Image)
	require.Contains(t, result.Text, "not expanded")
}

func TestNormalizeUnknownTypeProducesPlaceholder(t *testing.T) {
	result := NormalizeArtifact(Artifact{
		Name:      "data.bin",
		MediaType: "application/octet-stream",
		SizeBytes: 99,
		Reader:    bytes.NewReader([]byte{0x00}),
	})

	require.Nil(t, result.Image)
	require.NotEmpty(t, result.Text)
	require.Contains(t, result.Text, "data.bin")
}
