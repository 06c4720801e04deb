package s3

import (
	"context"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-video/pkg/simplevideo/content/contenttest"
)

func TestNew_Configuration(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyBucket", func(t *testing.T) {
		_, err := New(ctx, Config{Region: "us-east-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket name is required")
	})

	t.Run("DefaultRegion", func(t *testing.T) {
		store, err := New(ctx, Config{
			Bucket:          "test-bucket",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
		})
		require.NoError(t, err)
		assert.Equal(t, "us-east-1", store.config.Region)
	})

	t.Run("ServerSideEncryption_AES256", func(t *testing.T) {
		store, err := New(ctx, Config{
			Bucket:          "test-bucket",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
			EnableSSE:       true,
			SSEAlgorithm:    "AES256",
		})
		require.NoError(t, err)

		input := &s3.PutObjectInput{}
		store.applySSE(input)
		assert.Equal(t, types.ServerSideEncryptionAes256, input.ServerSideEncryption)
		assert.Nil(t, input.SSEKMSKeyId)
	})

	t.Run("ServerSideEncryption_KMS", func(t *testing.T) {
		store, err := New(ctx, Config{
			Bucket:          "test-bucket",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
			EnableSSE:       true,
			SSEAlgorithm:    "aws:kms",
			SSEKMSKeyID:     "key-123",
		})
		require.NoError(t, err)

		input := &s3.PutObjectInput{}
		store.applySSE(input)
		assert.Equal(t, types.ServerSideEncryptionAwsKms, input.ServerSideEncryption)
		require.NotNil(t, input.SSEKMSKeyId)
		assert.Equal(t, "key-123", *input.SSEKMSKeyId)
	})

	t.Run("InvalidSSEAlgorithm", func(t *testing.T) {
		_, err := New(ctx, Config{
			Bucket:       "test-bucket",
			EnableSSE:    true,
			SSEAlgorithm: "rot13",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid SSE algorithm")
	})
}

func TestKey(t *testing.T) {
	id := uuid.MustParse("6f1c2a8e-3b7d-4c1e-9f2a-5d8e7b6a4c3f")

	plain := &Store{}
	assert.Equal(t, "videos/6f1c2a8e-3b7d-4c1e-9f2a-5d8e7b6a4c3f/versions/v2", plain.Key(id, 2))

	prefixed := &Store{config: Config{Prefix: "media/"}}
	assert.Equal(t, "media/videos/6f1c2a8e-3b7d-4c1e-9f2a-5d8e7b6a4c3f/versions/v2", prefixed.Key(id, 2))
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, isNotFound(&types.NotFound{}))
	assert.True(t, isNotFound(&types.NoSuchKey{}))
	assert.True(t, isNotFound(&smithy.GenericAPIError{Code: "NotFound"}))
	assert.False(t, isNotFound(&smithy.GenericAPIError{Code: "AccessDenied"}))

	assert.True(t, isPreconditionFailed(&smithy.GenericAPIError{Code: "PreconditionFailed"}))
	assert.True(t, isPreconditionFailed(&smithy.GenericAPIError{Code: "ConditionalRequestConflict"}))
	assert.False(t, isPreconditionFailed(&types.NoSuchKey{}))
}

// TestStoreContract runs against a real S3-compatible endpoint such as
// MinIO when TEST_S3_ENDPOINT is set.
func TestStoreContract(t *testing.T) {
	endpoint := os.Getenv("TEST_S3_ENDPOINT")
	if endpoint == "" {
		t.Skip("TEST_S3_ENDPOINT not set")
	}

	store, err := New(context.Background(), Config{
		Bucket:                 envOr("TEST_S3_BUCKET", "simple-video-test"),
		Region:                 envOr("TEST_S3_REGION", "us-east-1"),
		AccessKeyID:            envOr("TEST_S3_ACCESS_KEY_ID", "minioadmin"),
		SecretAccessKey:        envOr("TEST_S3_SECRET_ACCESS_KEY", "minioadmin"),
		Endpoint:               endpoint,
		UsePathStyle:           true,
		Prefix:                 "test-" + uuid.NewString()[:8],
		CreateBucketIfNotExist: true,
	})
	require.NoError(t, err)

	contenttest.Run(t, store)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
