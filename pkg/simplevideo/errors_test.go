package simplevideo_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/tendant/simple-video/pkg/simplevideo"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected simplevideo.ErrorKind
	}{
		{"nil", nil, simplevideo.KindNone},
		{"validation", &simplevideo.ValidationError{Field: "title", Reason: "empty"}, simplevideo.KindValidation},
		{"asset not found", simplevideo.ErrAssetNotFound, simplevideo.KindNotFound},
		{"wrapped version not found", fmt.Errorf("lookup: %w", simplevideo.ErrVersionNotFound), simplevideo.KindNotFound},
		{"content exists", simplevideo.ErrContentExists, simplevideo.KindConflict},
		{"retries exhausted", simplevideo.ErrRetriesExhausted, simplevideo.KindConflict},
		{
			name:     "storage failure",
			err:      &simplevideo.StorageError{Backend: "fs", Key: "k", Op: "put", Err: errors.New("disk full")},
			expected: simplevideo.KindStorage,
		},
		{
			name:     "storage wrapping not found",
			err:      &simplevideo.StorageError{Backend: "s3", Key: "k", Op: "get", Err: simplevideo.ErrContentNotFound},
			expected: simplevideo.KindNotFound,
		},
		{
			name:     "persistence failure",
			err:      &simplevideo.PersistenceError{Op: "append_version", Err: errors.New("connection reset")},
			expected: simplevideo.KindPersistence,
		},
		{
			name: "asset error keeps inner kind",
			err: &simplevideo.AssetError{
				AssetID: uuid.New(),
				Op:      "add_version",
				Err:     simplevideo.ErrRetriesExhausted,
			},
			expected: simplevideo.KindConflict,
		},
		{"canceled", context.Canceled, simplevideo.KindCanceled},
		{
			name:     "storage wrapping canceled",
			err:      &simplevideo.StorageError{Backend: "s3", Key: "k", Op: "put", Err: fmt.Errorf("upload: %w", context.Canceled)},
			expected: simplevideo.KindCanceled,
		},
		{
			name:     "persistence wrapping deadline",
			err:      &simplevideo.PersistenceError{Op: "list", Err: context.DeadlineExceeded},
			expected: simplevideo.KindCanceled,
		},
		{"unknown", errors.New("boom"), simplevideo.KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, simplevideo.Kind(tt.err))
		})
	}
}

func TestStorageErrorIs(t *testing.T) {
	err := &simplevideo.StorageError{Backend: "fs", Op: "put", Err: simplevideo.ErrContentExists}
	assert.False(t, errors.Is(err, simplevideo.ErrStorage))
	assert.True(t, errors.Is(err, simplevideo.ErrConflict))

	err = &simplevideo.StorageError{Backend: "fs", Op: "put", Err: errors.New("permission denied")}
	assert.True(t, errors.Is(err, simplevideo.ErrStorage))
	assert.Contains(t, err.Error(), "permission denied")
}

func TestHash(t *testing.T) {
	sum, err := simplevideo.Hash(strings.NewReader("abc"))
	assert.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", sum)
}
