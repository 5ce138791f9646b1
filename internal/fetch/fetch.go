// Package fetch downloads motion images referenced by user records and
// prepares a small JPEG preview for chat cards.
package fetch

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/dmitrijs2005/intrusionbot/internal/common"
	"github.com/gabriel-vasile/mimetype"
	"github.com/nfnt/resize"
)

// Image is a downloaded image. Thumbnail is nil when the format could not be
// decoded for resizing.
type Image struct {
	URL       string
	MIME      string
	Data      []byte
	Thumbnail []byte
}

// ThumbnailDataURI returns the preview as a data: URI, or "" without one.
func (i *Image) ThumbnailDataURI() string {
	if i == nil || len(i.Thumbnail) == 0 {
		return ""
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(i.Thumbnail)
}

// Options tunes a Fetcher. Zero values select the defaults.
type Options struct {
	Timeout       time.Duration
	Attempts      uint
	Delay         time.Duration
	ThumbnailSize uint
	MaxBytes      int64
	Client        *http.Client
}

type Fetcher struct {
	client    *http.Client
	attempts  uint
	delay     time.Duration
	thumbSize uint
	maxBytes  int64
}

func New(opts Options) *Fetcher {
	f := &Fetcher{
		client:    opts.Client,
		attempts:  opts.Attempts,
		delay:     opts.Delay,
		thumbSize: opts.ThumbnailSize,
		maxBytes:  opts.MaxBytes,
	}
	if f.client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		f.client = &http.Client{Timeout: timeout}
	}
	if f.attempts == 0 {
		f.attempts = 3
	}
	if f.delay <= 0 {
		f.delay = 200 * time.Millisecond
	}
	if f.thumbSize == 0 {
		f.thumbSize = 300
	}
	if f.maxBytes <= 0 {
		f.maxBytes = 20 << 20
	}
	return f
}

// Fetch downloads url. Transport errors and 5xx responses are retried;
// 4xx responses, oversized bodies and non-image payloads are not. Every
// failure wraps common.ErrFetchFailure.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Image, error) {
	data, err := retry.DoWithData(
		func() ([]byte, error) { return f.get(ctx, url) },
		retry.Context(ctx),
		retry.Attempts(f.attempts),
		retry.Delay(f.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrFetchFailure, err)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("%w: %s is %s, not an image", common.ErrFetchFailure, url, mt.String())
	}

	return &Image{
		URL:       url,
		MIME:      mt.String(),
		Data:      data,
		Thumbnail: thumbnail(data, f.thumbSize),
	}, nil
}

var errTooLarge = errors.New("image too large")

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.Unrecoverable(err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return nil, retry.Unrecoverable(fmt.Errorf("get %s: %s", url, resp.Status))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: %s", url, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > f.maxBytes {
		return nil, retry.Unrecoverable(errTooLarge)
	}

	return data, nil
}

func thumbnail(data []byte, size uint) []byte {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	thumb := resize.Thumbnail(size, size, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return nil
	}
	return buf.Bytes()
}
