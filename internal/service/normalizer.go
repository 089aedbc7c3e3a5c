package service

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/classmark/classmark-api/pkg/ai"
)

// MaxInlineImageBytes is the ceiling above which an image is not inlined into
// the evaluation request. Larger images are still stored and graded, but only
// from the textual placeholder (degraded evaluation).
const MaxInlineImageBytes int64 = 4 << 20

// Artifact is the raw uploaded file handed to the normalizer.
type Artifact struct {
	Name      string
	MediaType string
	SizeBytes int64
	Reader    io.Reader
}

// NormalizedContent is the evaluator-ready representation of an artifact:
// always a text representation, plus an inline image when one could be built.
type NormalizedContent struct {
	Text  string
	Image *ai.InlineImage
}

type artifactKind int

const (
	kindText artifactKind = iota
	kindImage
	kindDocument
	kindArchive
	kindOther
)

func classifyArtifact(mediaType string) artifactKind {
	normalized := strings.ToLower(strings.TrimSpace(mediaType))

	switch {
	case strings.HasPrefix(normalized, "text/"):
		return kindText
	case strings.HasPrefix(normalized, "image/"):
		return kindImage
	}

	switch normalized {
	case "application/pdf", "application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return kindDocument
	case "application/zip", "application/x-zip-compressed":
		return kindArchive
	default:
		return kindOther
	}
}

// NormalizeArtifact converts an uploaded artifact into the representation the
// evaluator consumes. It never fails: unreadable or oversized content degrades
// to a descriptive placeholder so evaluation can proceed on assignment
// metadata alone.
func NormalizeArtifact(artifact Artifact) NormalizedContent {
	switch classifyArtifact(artifact.MediaType) {
	case kindText:
		return normalizeText(artifact)
	case kindImage:
		return normalizeImage(artifact)
	case kindDocument:
		return NormalizedContent{
			Text: fmt.Sprintf("Document submission %q (%s, %d bytes). Content was not extracted; grade on the assignment instructions and this metadata only.",
				artifact.Name, artifact.MediaType, artifact.SizeBytes),
		}
	case kindArchive:
		return NormalizedContent{
			Text: fmt.Sprintf("Archive submission %q (%s, %d bytes). The archive was not expanded for analysis.",
				artifact.Name, artifact.MediaType, artifact.SizeBytes),
		}
	default:
		return NormalizedContent{
			Text: fmt.Sprintf("Submission %q of type %s (%d bytes). Content could not be analyzed directly.",
				artifact.Name, artifact.MediaType, artifact.SizeBytes),
		}
	}
}

func normalizeText(artifact Artifact) NormalizedContent {
	content, err := io.ReadAll(artifact.Reader)
	if err != nil {
		return NormalizedContent{
			Text: fmt.Sprintf("Text submission %q could not be read (%v). Grade on the assignment instructions only.",
				artifact.Name, err),
		}
	}

	return NormalizedContent{Text: string(content)}
}

func normalizeImage(artifact Artifact) NormalizedContent {
	if artifact.SizeBytes > MaxInlineImageBytes {
		return NormalizedContent{
			Text: fmt.Sprintf("Image submission %q (%s, %d bytes) is too large for inline analysis. Evaluate on the assignment instructions; note that visual content was not reviewed.",
				artifact.Name, artifact.MediaType, artifact.SizeBytes),
		}
	}

	content, err := io.ReadAll(artifact.Reader)
	if err != nil {
		return NormalizedContent{
			Text: fmt.Sprintf("Image submission %q could not be encoded for analysis (%v). Grade on the assignment instructions only.",
				artifact.Name, err),
		}
	}

	return NormalizedContent{
		Text: fmt.Sprintf("Image submission %q (%s) is attached for visual analysis.", artifact.Name, artifact.MediaType),
		Image: &ai.InlineImage{
			Base64:   base64.StdEncoding.EncodeToString(content),
			MimeType: artifact.MediaType,
			Name:     artifact.Name,
		},
	}
}
