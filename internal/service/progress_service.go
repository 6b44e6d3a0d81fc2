package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gymvida/gym-manager/internal/domain"
	"gymvida/gym-manager/internal/repository"
	"gymvida/gym-manager/internal/storage"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PhotoUploadTicket carries a presigned URL the caller PUTs the progress
// photo to, plus the object key to record on the log entry.
type PhotoUploadTicket struct {
	ObjectKey string `json:"objectKey"`
	UploadURL string `json:"uploadUrl"`
}

// --- Service Interface ---
type ProgressService interface {
	LogProgress(ctx context.Context, clientID, planID primitive.ObjectID, date time.Time, weightKg float64, notes, photoKey string) (*domain.ProgressLog, error)
	ListByClient(ctx context.Context, clientID primitive.ObjectID) ([]domain.ProgressLog, error)
	RequestPhotoUpload(ctx context.Context, clientID primitive.ObjectID, contentType string) (*PhotoUploadTicket, error)
	PhotoDownloadURL(ctx context.Context, objectKey string) (string, error)
}

// --- Service Implementation ---

// progressService implements the ProgressService interface.
type progressService struct {
	progressRepo repository.ProgressLogRepository
	clientRepo   repository.ClientRepository
	fileStorage  storage.FileStorage
}

// NewProgressService creates a new instance of progressService.
func NewProgressService(
	progressRepo repository.ProgressLogRepository,
	clientRepo repository.ClientRepository,
	fileStorage storage.FileStorage,
) ProgressService {
	return &progressService{
		progressRepo: progressRepo,
		clientRepo:   clientRepo,
		fileStorage:  fileStorage,
	}
}

// LogProgress validates and stores a progress log entry for a client the
// repository can resolve.
func (s *progressService) LogProgress(ctx context.Context, clientID, planID primitive.ObjectID, date time.Time, weightKg float64, notes, photoKey string) (*domain.ProgressLog, error) {
	entry, err := domain.NewProgressLog(clientID, planID, date, weightKg, notes, photoKey)
	if err != nil {
		return nil, err
	}

	if _, err := s.clientRepo.GetByID(ctx, clientID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &domain.NotFoundError{Entity: "client", ID: clientID.Hex()}
		}
		return nil, &domain.DependencyError{Entity: "client", Err: err}
	}

	if _, err := s.progressRepo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("progress log insert: %w", err)
	}
	return entry, nil
}

// ListByClient retrieves a client's progress history, newest first.
func (s *progressService) ListByClient(ctx context.Context, clientID primitive.ObjectID) ([]domain.ProgressLog, error) {
	logs, err := s.progressRepo.GetByClientID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("progress log list: %w", err)
	}
	return logs, nil
}

// RequestPhotoUpload issues a presigned PUT URL for a progress photo.
// The caller uploads the object, then records the key via LogProgress.
func (s *progressService) RequestPhotoUpload(ctx context.Context, clientID primitive.ObjectID, contentType string) (*PhotoUploadTicket, error) {
	if clientID.IsZero() {
		return nil, domain.NewValidationError("clienteId", "is required")
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}

	objectKey := fmt.Sprintf("progress/%s/%s", clientID.Hex(), uuid.New().String())
	url, err := s.fileStorage.GeneratePresignedUploadURL(ctx, objectKey, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign photo upload: %w", err)
	}

	return &PhotoUploadTicket{ObjectKey: objectKey, UploadURL: url}, nil
}

// progressLogCleaner implements ProgressLogRemover over the progress log
// gateway, additionally deleting stored photo objects. Object deletion is
// best-effort within an already best-effort compensation: a leaked photo
// never blocks the cleanup count from being reported.
type progressLogCleaner struct {
	progressRepo repository.ProgressLogRepository
	fileStorage  storage.FileStorage
}

// NewProgressLogCleaner creates the ProgressLogRemover the plan cascade
// is wired with.
func NewProgressLogCleaner(progressRepo repository.ProgressLogRepository, fileStorage storage.FileStorage) ProgressLogRemover {
	return &progressLogCleaner{progressRepo: progressRepo, fileStorage: fileStorage}
}

func (c *progressLogCleaner) DeleteByClientAndPlan(ctx context.Context, clientID, planID primitive.ObjectID) (int64, error) {
	logs, err := c.progressRepo.GetByClientAndPlan(ctx, clientID, planID)
	if err != nil {
		return 0, fmt.Errorf("progress log fetch: %w", err)
	}

	removed, err := c.progressRepo.DeleteByClientAndPlan(ctx, clientID, planID)
	if err != nil {
		return 0, fmt.Errorf("progress log delete: %w", err)
	}

	if c.fileStorage != nil {
		for _, entry := range logs {
			if entry.PhotoKey == "" {
				continue
			}
			if err := c.fileStorage.DeleteObject(ctx, entry.PhotoKey); err != nil {
				log.Printf("WARN: failed to delete progress photo %s: %v", entry.PhotoKey, err)
			}
		}
	}
	return removed, nil
}

// PhotoDownloadURL issues a presigned GET URL for a stored progress photo.
func (s *progressService) PhotoDownloadURL(ctx context.Context, objectKey string) (string, error) {
	if objectKey == "" {
		return "", domain.NewValidationError("fotoKey", "is required")
	}
	url, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, objectKey, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return "", fmt.Errorf("presign photo download: %w", err)
	}
	return url, nil
}
