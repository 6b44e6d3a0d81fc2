package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gymvida/gym-manager/internal/domain"
	"gymvida/gym-manager/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeProgressLogRepo struct {
	logs map[primitive.ObjectID]domain.ProgressLog
}

func newFakeProgressLogRepo() *fakeProgressLogRepo {
	return &fakeProgressLogRepo{logs: make(map[primitive.ObjectID]domain.ProgressLog)}
}

func (f *fakeProgressLogRepo) Create(ctx context.Context, log *domain.ProgressLog) (primitive.ObjectID, error) {
	if log.ID.IsZero() {
		log.ID = primitive.NewObjectID()
	}
	f.logs[log.ID] = *log
	return log.ID, nil
}

func (f *fakeProgressLogRepo) GetByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.ProgressLog, error) {
	var out []domain.ProgressLog
	for _, l := range f.logs {
		if l.ClientID == clientID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeProgressLogRepo) GetByClientAndPlan(ctx context.Context, clientID, planID primitive.ObjectID) ([]domain.ProgressLog, error) {
	var out []domain.ProgressLog
	for _, l := range f.logs {
		if l.ClientID == clientID && l.PlanID == planID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeProgressLogRepo) DeleteByClientAndPlan(ctx context.Context, clientID, planID primitive.ObjectID) (int64, error) {
	var n int64
	for id, l := range f.logs {
		if l.ClientID == clientID && l.PlanID == planID {
			delete(f.logs, id)
			n++
		}
	}
	return n, nil
}

type fakeFileStorage struct {
	deleted   []string
	deleteErr error
}

func (f *fakeFileStorage) GeneratePresignedUploadURL(ctx context.Context, objectKey, contentType string, expires time.Duration) (string, error) {
	return "https://storage.test/upload/" + objectKey, nil
}

func (f *fakeFileStorage) GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	return "https://storage.test/download/" + objectKey, nil
}

func (f *fakeFileStorage) DeleteObject(ctx context.Context, objectKey string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, objectKey)
	return nil
}

func TestLogProgressRequiresKnownClient(t *testing.T) {
	clients := newFakeClientRepo()
	svc := NewProgressService(newFakeProgressLogRepo(), clients, &fakeFileStorage{})

	_, err := svc.LogProgress(context.Background(), primitive.NewObjectID(), primitive.NewObjectID(),
		time.Now().UTC(), 80, "", "")
	var notFoundErr *domain.NotFoundError
	assert.ErrorAs(t, err, &notFoundErr)
}

func TestRequestPhotoUploadScopesKeyToClient(t *testing.T) {
	svc := NewProgressService(newFakeProgressLogRepo(), newFakeClientRepo(), &fakeFileStorage{})
	clientID := primitive.NewObjectID()

	ticket, err := svc.RequestPhotoUpload(context.Background(), clientID, "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ticket.ObjectKey, "progress/"+clientID.Hex()+"/"))
	assert.Contains(t, ticket.UploadURL, ticket.ObjectKey)
}

func TestProgressLogCleanerDeletesLogsAndPhotos(t *testing.T) {
	repo := newFakeProgressLogRepo()
	storage := &fakeFileStorage{}
	cleaner := NewProgressLogCleaner(repo, storage)
	ctx := context.Background()

	clientID := primitive.NewObjectID()
	planID := primitive.NewObjectID()

	for _, photoKey := range []string{"progress/a/1", "", "progress/a/2"} {
		entry, err := domain.NewProgressLog(clientID, planID, time.Now().UTC(), 80, "", photoKey)
		require.NoError(t, err)
		_, err = repo.Create(ctx, entry)
		require.NoError(t, err)
	}
	// A log for another plan must survive.
	other, err := domain.NewProgressLog(clientID, primitive.NewObjectID(), time.Now().UTC(), 80, "", "")
	require.NoError(t, err)
	_, err = repo.Create(ctx, other)
	require.NoError(t, err)

	removed, err := cleaner.DeleteByClientAndPlan(ctx, clientID, planID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
	assert.ElementsMatch(t, []string{"progress/a/1", "progress/a/2"}, storage.deleted)

	remaining, err := repo.GetByClientID(ctx, clientID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestProgressLogCleanerToleratesPhotoDeleteFailure(t *testing.T) {
	repo := newFakeProgressLogRepo()
	storage := &fakeFileStorage{deleteErr: errors.New("bucket unreachable")}
	cleaner := NewProgressLogCleaner(repo, storage)
	ctx := context.Background()

	clientID := primitive.NewObjectID()
	planID := primitive.NewObjectID()
	entry, err := domain.NewProgressLog(clientID, planID, time.Now().UTC(), 80, "", "progress/a/1")
	require.NoError(t, err)
	_, err = repo.Create(ctx, entry)
	require.NoError(t, err)

	removed, err := cleaner.DeleteByClientAndPlan(ctx, clientID, planID)
	require.NoError(t, err, "photo deletion failure never fails the cleanup")
	assert.Equal(t, int64(1), removed)
}

var _ repository.ProgressLogRepository = (*fakeProgressLogRepo)(nil)
