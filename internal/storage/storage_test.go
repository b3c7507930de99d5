package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_PutAndURL(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/static/profile/")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "0123456789abcdef.png", strings.NewReader("png-bytes"), "image/png"))

	data, err := os.ReadFile(filepath.Join(dir, "0123456789abcdef.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	url, err := store.URL(ctx, "0123456789abcdef.png")
	require.NoError(t, err)
	assert.Equal(t, "/static/profile/0123456789abcdef.png", url)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestLocalStore_RejectsPathKeys(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "/static/profile")
	require.NoError(t, err)

	for _, key := range []string{"", "../evil.png", "a/b.png", ".hidden", `a\b.png`} {
		err := store.Put(context.Background(), key, strings.NewReader("x"), "")
		assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
	}
}

func TestS3Service_PresignedURL(t *testing.T) {
	client := s3.New(s3.Options{
		Region:       "us-east-1",
		Credentials:  aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider("AKID", "SECRET", "")),
		BaseEndpoint: aws.String("http://localhost:9000"),
		UsePathStyle: true,
	})
	svc, err := NewS3Service(client, S3Options{Bucket: "photos", KeyPrefix: "/profile/"})
	require.NoError(t, err)

	url, err := svc.URL(context.Background(), "0123456789abcdef.jpg")
	require.NoError(t, err)
	assert.Contains(t, url, "http://localhost:9000/photos/profile/0123456789abcdef.jpg")
	assert.Contains(t, url, "X-Amz-Signature=")

	_, err = NewS3Service(client, S3Options{})
	require.Error(t, err)
}
