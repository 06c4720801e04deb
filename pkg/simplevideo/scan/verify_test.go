package scan_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-video/pkg/simplevideo"
	"github.com/tendant/simple-video/pkg/simplevideo/presets"
	"github.com/tendant/simple-video/pkg/simplevideo/scan"
)

func TestVerifyProcessor(t *testing.T) {
	ctx := context.Background()
	stack := presets.NewTesting(t)
	ids := seed(t, stack, 3)

	intact, tampered, missing := ids[0], ids[1], ids[2]

	v2, err := stack.Engine.GetVersion(ctx, tampered, 2)
	require.NoError(t, err)
	removed, err := stack.Content.Delete(ctx, v2.Location)
	require.NoError(t, err)
	require.True(t, removed)
	_, err = stack.Content.Put(ctx, tampered, 2, strings.NewReader("not the original bytes"))
	require.NoError(t, err)

	v1, err := stack.Engine.GetVersion(ctx, missing, 1)
	require.NoError(t, err)
	_, err = stack.Content.Delete(ctx, v1.Location)
	require.NoError(t, err)

	result, err := scan.New(stack.Query, nil).Scan(ctx, scan.Options{
		Processor: scan.NewVerifyProcessor(stack.Engine),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(3), result.TotalFound)
	assert.Equal(t, int64(1), result.TotalProcessed)
	assert.Equal(t, int64(2), result.TotalFailed)
	assert.NotContains(t, result.Failures, intact)

	require.Contains(t, result.Failures, tampered)
	assert.ErrorIs(t, result.Failures[tampered], scan.ErrIntegrity)

	require.Contains(t, result.Failures, missing)
	assert.ErrorIs(t, result.Failures[missing], simplevideo.ErrNotFound)
	assert.NotErrorIs(t, result.Failures[missing], scan.ErrIntegrity)
}

func TestVerifyProcessorReportsUnrecordedContent(t *testing.T) {
	ctx := context.Background()
	stack := presets.NewTesting(t, presets.WithTestMaxVersionRetries(2))
	ids := seed(t, stack, 2)
	blocked, clean := ids[0], ids[1]

	// bytes stored for version 3 whose catalog record never committed
	location, err := stack.Content.Put(ctx, blocked, 3, strings.NewReader("left by a crash"))
	require.NoError(t, err)

	_, err = stack.Engine.AddVersion(ctx, simplevideo.AddVersionRequest{
		AssetID: blocked,
		Reader:  strings.NewReader("next revision"),
	}, "editor")
	require.ErrorIs(t, err, simplevideo.ErrRetriesExhausted)

	result, err := scan.New(stack.Query, nil).Scan(ctx, scan.Options{
		Processor: scan.NewVerifyProcessor(stack.Engine),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.TotalFailed)
	assert.NotContains(t, result.Failures, clean)
	require.Contains(t, result.Failures, blocked)
	assert.ErrorIs(t, result.Failures[blocked], scan.ErrUnrecordedContent)
	assert.NotErrorIs(t, result.Failures[blocked], scan.ErrIntegrity)
	assert.Contains(t, result.Failures[blocked].Error(), location)

	// once the bytes are removed the asset accepts versions again
	_, err = stack.Content.Delete(ctx, location)
	require.NoError(t, err)
	version, err := stack.Engine.AddVersion(ctx, simplevideo.AddVersionRequest{
		AssetID: blocked,
		Reader:  strings.NewReader("next revision"),
	}, "editor")
	require.NoError(t, err)
	assert.Equal(t, 3, version.Number)

	result, err = scan.New(stack.Query, nil).Scan(ctx, scan.Options{
		Processor: scan.NewVerifyProcessor(stack.Engine),
	})
	require.NoError(t, err)
	assert.Zero(t, result.TotalFailed)
}
