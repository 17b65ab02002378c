package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/amc-schedule/internal/config"
)

type fakeAPI struct {
	buckets  map[string]bool
	objects  map[string][]byte
	types    map[string]string
	putErr   error
	presigns int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{buckets: map[string]bool{}, objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeAPI) BucketExists(_ context.Context, bucket string) (bool, error) {
	return f.buckets[bucket], nil
}

func (f *fakeAPI) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.buckets[bucket] = true
	return nil
}

func (f *fakeAPI) PutObject(_ context.Context, bucket, name string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.objects[bucket+"/"+name] = data
	f.types[bucket+"/"+name] = opts.ContentType
	return minio.UploadInfo{Bucket: bucket, Key: name, Size: size}, nil
}

func (f *fakeAPI) PresignedGetObject(_ context.Context, bucket, name string, expiry time.Duration, params url.Values) (*url.URL, error) {
	f.presigns++
	return url.Parse("https://files.local/" + bucket + "/" + name + "?expires=" + expiry.String() + "&" + params.Encode())
}

func TestArtifactStore_Put(t *testing.T) {
	api := newFakeAPI()
	store := NewWithAPI(api, "exports", time.Hour, zerolog.Nop())

	link, err := store.Put(context.Background(), "amc-schedule-20250101.csv", "text/csv", []byte("a,b\n"))
	require.NoError(t, err)

	assert.True(t, api.buckets["exports"])
	assert.Equal(t, []byte("a,b\n"), api.objects["exports/amc-schedule-20250101.csv"])
	assert.Equal(t, "text/csv", api.types["exports/amc-schedule-20250101.csv"])
	assert.Contains(t, link, "https://files.local/exports/amc-schedule-20250101.csv")
	assert.Contains(t, link, "response-content-disposition")
}

func TestArtifactStore_PutFailure(t *testing.T) {
	api := newFakeAPI()
	api.putErr = errors.New("disk full")
	store := NewWithAPI(api, "exports", time.Hour, zerolog.Nop())

	_, err := store.Put(context.Background(), "x.pdf", "application/pdf", []byte("%PDF"))
	assert.ErrorContains(t, err, "disk full")
	assert.Zero(t, api.presigns)
}

func TestNew_DisabledWithoutEndpoint(t *testing.T) {
	store, err := New(config.MinioConfig{}, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, store)
}
