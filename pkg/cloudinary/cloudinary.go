package cloudinary

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// Attachments are stored as raw assets so any allowed type round-trips unchanged.
const resourceType = "raw"

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Service stores report attachments in Cloudinary.
type Service struct {
	client *cloudinary.Cloudinary
	folder string
	http   *http.Client
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
		folder: strings.Trim(cfg.Folder, "/"),
		http:   &http.Client{},
		logger: logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// Put uploads the attachment under the report id and returns its secure URL.
func (s *Service) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	result, err := s.client.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID:     publicID(s.folder, key),
		ResourceType: resourceType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload asset: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("failed to upload asset: %s", result.Error.Message)
	}

	s.logger.Info().Str("public_id", result.PublicID).Str("content_type", contentType).Msg("file uploaded to cloudinary")
	return result.SecureURL, nil
}

// Get resolves the asset URL through the admin API and downloads it.
func (s *Service) Get(ctx context.Context, key string) ([]byte, error) {
	asset, err := s.client.Admin.Asset(ctx, admin.AssetParams{
		AssetType:    api.AssetType(resourceType),
		DeliveryType: api.DeliveryType("upload"),
		PublicID:     publicID(s.folder, key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve asset: %w", err)
	}
	if asset.Error.Message != "" {
		if isNotFound(asset.Error.Message) {
			return nil, fmt.Errorf("asset %q: %w", key, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to resolve asset: %s", asset.Error.Message)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.SecureURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("asset %q: %w", key, fs.ErrNotExist)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download asset: status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// Delete destroys the asset. A missing asset is not an error.
func (s *Service) Delete(ctx context.Context, key string) error {
	result, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID(s.folder, key),
		ResourceType: resourceType,
	})
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	if result.Error.Message != "" && !isNotFound(result.Error.Message) {
		return fmt.Errorf("failed to delete asset: %s", result.Error.Message)
	}

	s.logger.Info().Str("key", key).Str("result", result.Result).Msg("asset deleted from cloudinary")
	return nil
}

func publicID(folder, key string) string {
	key = strings.Trim(key, "/")
	if folder == "" {
		return key
	}
	return folder + "/" + key
}

func isNotFound(message string) bool {
	return strings.Contains(strings.ToLower(message), "not found")
}
