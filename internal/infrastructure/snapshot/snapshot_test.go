package snapshot

import (
	"context"
	"errors"
	"image"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"

	"lpr-gate/internal/domain/entity"
)

var record = entity.DetectionRecord{
	ID:        "01HX0000000000000000000000",
	Plate:     "ABC1234",
	Timestamp: time.Date(2024, 5, 1, 23, 30, 0, 0, time.UTC),
}

func TestObjectName(t *testing.T) {
	require.Equal(t, "2024-05-01/ABC1234_01HX0000000000000000000000.jpg", objectName(record))
}

func TestFileStore_Save(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	ref, err := store.Save(context.Background(), record, image.NewNRGBA(image.Rect(0, 0, 40, 12)))
	require.NoError(t, err)
	require.Equal(t, objectName(record), ref)

	info, err := os.Stat(filepath.Join(dir, ref))
	require.NoError(t, err)
	require.Positive(t, info.Size())
}

func TestFileStore_Delete(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	ctx := context.Background()

	ref, err := store.Save(ctx, record, image.NewNRGBA(image.Rect(0, 0, 40, 12)))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, ref))
	_, err = os.Stat(filepath.Join(dir, ref))
	require.ErrorIs(t, err, os.ErrNotExist)

	// повторное удаление не ошибка
	require.NoError(t, store.Delete(ctx, ref))
	require.Error(t, store.Delete(ctx, "../outside.jpg"))
}

type fakeS3 struct {
	input   *s3.PutObjectInput
	deleted []string
	body    []byte
	err     error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if params.Body != nil {
		f.body, _ = io.ReadAll(params.Body)
	}
	return &s3.PutObjectOutput{}, f.err
}

func (f *fakeS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, f.err
}

func TestS3Store_Save(t *testing.T) {
	client := &fakeS3{}
	store := NewS3Store(client, "plates", "snapshots")

	ref, err := store.Save(context.Background(), record, image.NewGray(image.Rect(0, 0, 40, 12)))
	require.NoError(t, err)
	require.Equal(t, "s3://plates/snapshots/2024-05-01/ABC1234_01HX0000000000000000000000.jpg", ref)
	require.Equal(t, "plates", aws.ToString(client.input.Bucket))
	require.Equal(t, "image/jpeg", aws.ToString(client.input.ContentType))
	require.Equal(t, "ABC1234", client.input.Metadata["plate"])
	require.NotEmpty(t, client.body)
}

func TestS3Store_UploadError(t *testing.T) {
	store := NewS3Store(&fakeS3{err: errors.New("access denied")}, "plates", "")

	_, err := store.Save(context.Background(), record, image.NewGray(image.Rect(0, 0, 4, 4)))
	require.ErrorContains(t, err, "access denied")
}

func TestS3Store_Delete(t *testing.T) {
	client := &fakeS3{}
	store := NewS3Store(client, "plates", "snapshots")
	ctx := context.Background()

	require.NoError(t, store.Delete(ctx, "s3://plates/snapshots/2024-05-01/ABC1234_X.jpg"))
	require.Equal(t, []string{"plates/snapshots/2024-05-01/ABC1234_X.jpg"}, client.deleted)

	require.Error(t, store.Delete(ctx, "s3://other/snapshots/x.jpg"))
	require.Len(t, client.deleted, 1)
}
