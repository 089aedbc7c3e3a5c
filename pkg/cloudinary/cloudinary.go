package cloudinary

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Service implements the ArtifactStorage interface using Cloudinary.
type Service struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

// New constructs a Cloudinary service instance.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Service{
		client: cld,
		folder: cfg.Folder,
		logger: logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// Upload stores the artifact bytes under the given path and returns the
// durable fetch URL together with the reference needed to delete the object
// later. The path already carries a timestamp prefix for collision avoidance,
// so no extra uniqueness suffix is appended here.
func (s *Service) Upload(ctx context.Context, path string, reader io.Reader) (string, string, error) {
	folder := strings.Trim(s.folder, "/")
	publicID := strings.Trim(path, "/")

	params := uploader.UploadParams{
		Folder:       folder,
		PublicID:     publicID,
		ResourceType: "auto",
	}

	result, err := s.client.Upload.Upload(ctx, reader, params)
	if err != nil {
		return "", "", fmt.Errorf("failed to upload artifact: %w", err)
	}

	s.logger.Info().Str("public_id", result.PublicID).Msg("artifact uploaded to cloudinary")

	return result.SecureURL, result.PublicID, nil
}

// Delete removes the artifact by reference. Deleting an object that is
// already gone is not an error: cloudinary reports "not found" as a result
// string rather than a failure, and callers rely on that idempotency when
// replacing or cascading.
func (s *Service) Delete(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}

	result, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     ref,
		ResourceType: "auto",
	})
	if err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}

	if result.Result != "ok" && result.Result != "not found" {
		return fmt.Errorf("failed to delete artifact: %s", result.Result)
	}

	s.logger.Info().Str("public_id", ref).Str("result", result.Result).Msg("artifact deleted from cloudinary")

	return nil
}
