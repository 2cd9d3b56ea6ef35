package history

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/greennepal/agrihealth/pkg/errors"
)

// Service persists and lists saved scans per owner.
type Service interface {
	Save(ctx context.Context, owner string, req SaveRequest) (Record, error)
	List(ctx context.Context, owner string) ([]Record, error)
	Delete(ctx context.Context, owner, id string) error
}

type service struct {
	repo    Repository
	storage ObjectStorage
	logger  *slog.Logger
	now     func() time.Time
}

// NewService wires up the scan history domain. storage may be nil when no
// object store is configured; records then keep an empty imageRef.
func NewService(repo Repository, storage ObjectStorage, logger *slog.Logger) Service {
	return &service{
		repo:    repo,
		storage: storage,
		logger:  logger.With("component", "history.service"),
		now:     time.Now,
	}
}

func (s *service) Save(ctx context.Context, owner string, req SaveRequest) (Record, error) {
	if req.Result.Status == "" {
		return Record{}, apperrors.Wrap("invalid_input", "result status cannot be empty", nil)
	}

	record := Record{
		ID:        uuid.NewString(),
		Result:    req.Result,
		CreatedAt: s.now().UTC(),
	}

	if s.storage != nil && strings.TrimSpace(req.ImageBase64) != "" {
		data, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			return Record{}, apperrors.Wrap("invalid_input", "image payload is not valid base64", err)
		}
		key := fmt.Sprintf("scans/%s/%s%s", owner, record.ID, extensionFor(req.MimeType))
		if err := s.storage.Put(ctx, key, data, req.MimeType); err != nil {
			// the record is still worth keeping without the photo
			s.logger.Warn("scan image upload failed", "owner", owner, "error", err)
		} else {
			record.Result.ImageRef = key
		}
	}

	if err := s.repo.Add(ctx, owner, record); err != nil {
		return Record{}, apperrors.Wrap("store_error", "failed to save scan", err)
	}
	return record, nil
}

func (s *service) List(ctx context.Context, owner string) ([]Record, error) {
	records, err := s.repo.List(ctx, owner)
	if err != nil {
		return nil, apperrors.Wrap("store_error", "failed to list scans", err)
	}
	return records, nil
}

func (s *service) Delete(ctx context.Context, owner, id string) error {
	var imageRef string
	if s.storage != nil {
		if records, err := s.repo.List(ctx, owner); err == nil {
			for _, r := range records {
				if r.ID == id {
					imageRef = r.Result.ImageRef
					break
				}
			}
		}
	}
	if err := s.repo.Delete(ctx, owner, id); err != nil {
		return apperrors.Wrap("store_error", "failed to delete scan", err)
	}
	if imageRef != "" {
		// best effort, an orphaned photo is not worth failing the delete
		if err := s.storage.Delete(ctx, imageRef); err != nil {
			s.logger.Warn("scan image cleanup failed", "key", imageRef, "error", err)
		}
	}
	return nil
}

func extensionFor(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
