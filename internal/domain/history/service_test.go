package history

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/greennepal/agrihealth/internal/domain/diagnosis"
	apperrors "github.com/greennepal/agrihealth/pkg/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleResult() diagnosis.Result {
	return diagnosis.Result{
		Status:     diagnosis.StatusWarning,
		Confidence: 82,
		IssuesEn:   []string{"Early blight spots on lower leaves"},
		IssuesNe:   []string{"तल्लो पातहरूमा अर्ली ब्लाइटका दागहरू"},
	}
}

func TestSaveUploadsImageAndKeepsRef(t *testing.T) {
	repo := newFakeHistoryRepo()
	storage := &fakeStorage{}
	svc := NewService(repo, storage, testLogger())

	payload := base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))
	record, err := svc.Save(context.Background(), "user-1", SaveRequest{
		Result:      sampleResult(),
		ImageBase64: payload,
		MimeType:    "image/png",
	})
	require.NoError(t, err)
	require.NotEmpty(t, record.ID)
	require.Equal(t, "scans/user-1/"+record.ID+".png", record.Result.ImageRef)
	require.Equal(t, []byte("jpeg-bytes"), storage.data[record.Result.ImageRef])

	stored := repo.byOwner["user-1"]
	require.Len(t, stored, 1)
	require.Equal(t, record.Result.ImageRef, stored[0].Result.ImageRef)
}

func TestSaveSurvivesUploadFailure(t *testing.T) {
	repo := newFakeHistoryRepo()
	storage := &fakeStorage{putErr: context.DeadlineExceeded}
	svc := NewService(repo, storage, testLogger())

	payload := base64.StdEncoding.EncodeToString([]byte("x"))
	record, err := svc.Save(context.Background(), "user-1", SaveRequest{Result: sampleResult(), ImageBase64: payload})
	require.NoError(t, err)
	require.Empty(t, record.Result.ImageRef)
	require.Len(t, repo.byOwner["user-1"], 1)
}

func TestSaveWithoutImage(t *testing.T) {
	repo := newFakeHistoryRepo()
	svc := NewService(repo, nil, testLogger())

	record, err := svc.Save(context.Background(), "local", SaveRequest{Result: sampleResult()})
	require.NoError(t, err)
	require.Empty(t, record.Result.ImageRef)
	require.False(t, record.CreatedAt.IsZero())
}

func TestSaveRejectsEmptyStatus(t *testing.T) {
	svc := NewService(newFakeHistoryRepo(), nil, testLogger())
	_, err := svc.Save(context.Background(), "local", SaveRequest{})
	require.True(t, apperrors.IsCode(err, "invalid_input"))
}

func TestSaveRejectsBadBase64(t *testing.T) {
	svc := NewService(newFakeHistoryRepo(), &fakeStorage{}, testLogger())
	_, err := svc.Save(context.Background(), "local", SaveRequest{Result: sampleResult(), ImageBase64: "%%%"})
	require.True(t, apperrors.IsCode(err, "invalid_input"))
}

func TestListAndDelete(t *testing.T) {
	repo := newFakeHistoryRepo()
	svc := NewService(repo, nil, testLogger())
	ctx := context.Background()

	first, err := svc.Save(ctx, "local", SaveRequest{Result: sampleResult()})
	require.NoError(t, err)
	second, err := svc.Save(ctx, "local", SaveRequest{Result: sampleResult()})
	require.NoError(t, err)

	records, err := svc.List(ctx, "local")
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.NoError(t, svc.Delete(ctx, "local", first.ID))
	records, err = svc.List(ctx, "local")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, second.ID, records[0].ID)
}

func TestDeleteRemovesStoredImage(t *testing.T) {
	repo := newFakeHistoryRepo()
	storage := &fakeStorage{}
	svc := NewService(repo, storage, testLogger())
	ctx := context.Background()

	payload := base64.StdEncoding.EncodeToString([]byte("img"))
	record, err := svc.Save(ctx, "user-1", SaveRequest{Result: sampleResult(), ImageBase64: payload})
	require.NoError(t, err)
	require.Contains(t, storage.data, record.Result.ImageRef)

	require.NoError(t, svc.Delete(ctx, "user-1", record.ID))
	require.NotContains(t, storage.data, record.Result.ImageRef)
}

type fakeHistoryRepo struct {
	byOwner map[string][]Record
}

func newFakeHistoryRepo() *fakeHistoryRepo {
	return &fakeHistoryRepo{byOwner: make(map[string][]Record)}
}

func (f *fakeHistoryRepo) Add(_ context.Context, owner string, record Record) error {
	f.byOwner[owner] = append(f.byOwner[owner], record)
	return nil
}

func (f *fakeHistoryRepo) Delete(_ context.Context, owner, id string) error {
	list := f.byOwner[owner]
	for i, r := range list {
		if r.ID == id {
			f.byOwner[owner] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeHistoryRepo) List(_ context.Context, owner string) ([]Record, error) {
	out := make([]Record, len(f.byOwner[owner]))
	copy(out, f.byOwner[owner])
	return out, nil
}

type fakeStorage struct {
	data   map[string][]byte
	putErr error
}

func (f *fakeStorage) Put(_ context.Context, key string, data []byte, _ string) error {
	if f.putErr != nil {
		return f.putErr
	}
	if f.data == nil {
		f.data = make(map[string][]byte)
	}
	f.data[key] = data
	return nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	delete(f.data, key)
	return nil
}
