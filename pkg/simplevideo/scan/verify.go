package scan

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tendant/simple-video/pkg/simplevideo"
)

// ErrIntegrity reports stored bytes that no longer match the catalog.
var ErrIntegrity = errors.New("content integrity check failed")

// ErrUnrecordedContent reports bytes at an asset's next version number with
// no version record. Left by a crash, they block new versions until removed.
var ErrUnrecordedContent = errors.New("unrecorded content blocks the next version")

// VerifyProcessor re-hashes every version of an asset and looks for
// unrecorded content at the next version number. An upload that is in
// flight during the scan is reported the same way.
type VerifyProcessor struct {
	engine *simplevideo.Engine
}

// NewVerifyProcessor creates a VerifyProcessor reading through engine.
func NewVerifyProcessor(engine *simplevideo.Engine) *VerifyProcessor {
	return &VerifyProcessor{engine: engine}
}

func (p *VerifyProcessor) Process(ctx context.Context, asset *simplevideo.AssetView) error {
	versions, err := p.engine.ListVersions(ctx, asset.ID)
	if err != nil {
		return err
	}

	var errs []error
	for _, v := range versions {
		if err := p.verify(ctx, v); err != nil {
			errs = append(errs, err)
		}
	}

	location, found, err := p.engine.PendingContent(ctx, asset.ID)
	switch {
	case err != nil:
		errs = append(errs, err)
	case found:
		errs = append(errs, fmt.Errorf("%w: %s", ErrUnrecordedContent, location))
	}
	return errors.Join(errs...)
}

func (p *VerifyProcessor) verify(ctx context.Context, v *simplevideo.Version) error {
	_, rc, err := p.engine.OpenVersion(ctx, v.AssetID, v.Number)
	if err != nil {
		return fmt.Errorf("version %d: %w", v.Number, err)
	}
	defer rc.Close()

	counter := &countingReader{r: rc}
	digest, err := simplevideo.Hash(counter)
	if err != nil {
		return fmt.Errorf("version %d: read failed: %w", v.Number, err)
	}
	if counter.n != v.SizeBytes {
		return fmt.Errorf("%w: version %d has %d bytes, catalog records %d", ErrIntegrity, v.Number, counter.n, v.SizeBytes)
	}
	if digest != v.Hash {
		return fmt.Errorf("%w: version %d digest %s, catalog records %s", ErrIntegrity, v.Number, digest, v.Hash)
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
