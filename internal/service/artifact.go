package service

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/classmark/classmark-api/internal/observability"
)

var (
	// ErrArtifactTooLarge indicates the uploaded file exceeded the configured limit.
	ErrArtifactTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrArtifactTypeNotAllowed indicates the detected MIME type is not permitted.
	ErrArtifactTypeNotAllowed = errors.New("file type not allowed")
)

type artifactPayload struct {
	name      string
	mediaType string
	size      int64
	content   []byte
}

// readArtifact buffers and validates an uploaded file: size ceiling first,
// then MIME sniffing against the submission allow-list. Validation happens
// before any storage write.
func (s *submissionService) readArtifact(file *multipart.FileHeader) (artifactPayload, error) {
	if file.Size > s.maxBytes {
		observability.ArtifactsRejected().WithLabelValues("size").Inc()
		return artifactPayload{}, ErrArtifactTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		return artifactPayload{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxBytes+1)); err != nil {
		return artifactPayload{}, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(buf.Len()) > s.maxBytes {
		observability.ArtifactsRejected().WithLabelValues("size").Inc()
		return artifactPayload{}, ErrArtifactTooLarge
	}

	mediaType := detectMediaType(buf.Bytes(), file)
	if !isAllowedArtifactType(mediaType) {
		observability.ArtifactsRejected().WithLabelValues("type").Inc()
		return artifactPayload{}, ErrArtifactTypeNotAllowed
	}

	return artifactPayload{
		name:      file.Filename,
		mediaType: mediaType,
		size:      int64(buf.Len()),
		content:   buf.Bytes(),
	}, nil
}

// detectMediaType sniffs the content and falls back to the declared header
// type for formats the sniffer cannot distinguish, such as markdown.
func detectMediaType(content []byte, file *multipart.FileHeader) string {
	detected := strings.ToLower(mimetype.Detect(content).String())
	if idx := strings.Index(detected, ";"); idx >= 0 {
		detected = strings.TrimSpace(detected[:idx])
	}

	if detected == "text/plain" && strings.EqualFold(filepath.Ext(file.Filename), ".md") {
		return "text/markdown"
	}

	return detected
}

func isAllowedArtifactType(mediaType string) bool {
	if strings.HasPrefix(mediaType, "text/") || strings.HasPrefix(mediaType, "image/") {
		return true
	}

	switch mediaType {
	case "application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/zip",
		"application/x-zip-compressed":
		return true
	default:
		return false
	}
}

func sanitizeFileName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		if r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("artifact-%d", time.Now().Unix())
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}
