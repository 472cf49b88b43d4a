package proof

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	DownloadTimeout = 15 * time.Second
	// MaxImageBytes caps downloaded and local images.
	MaxImageBytes = 20 << 20

	userAgent = "dobromatch-proof/1.0"
)

// Fetcher loads images from URLs or local paths.
type Fetcher struct {
	Client *retryablehttp.Client
}

// NewFetcher returns a Fetcher with a retrying client and the download timeout.
func NewFetcher() *Fetcher {
	c := retryablehttp.NewClient()
	c.Logger = log.New(io.Discard, "", 0)
	c.RetryMax = 2
	c.HTTPClient.Timeout = DownloadTimeout
	return &Fetcher{Client: c}
}

// Fetch reads an image from an http(s) URL or a file path.
func (f *Fetcher) Fetch(ctx context.Context, location string) (Image, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return f.download(ctx, location)
	}

	file, err := os.Open(location)
	if err != nil {
		return Image{}, err
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, MaxImageBytes))
	if err != nil {
		return Image{}, err
	}
	return NewImage(data)
}

func (f *Fetcher) download(ctx context.Context, url string) (Image, error) {
	client := f.Client
	if client == nil {
		client = NewFetcher().Client
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Image{}, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return Image{}, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Image{}, fmt.Errorf("download image: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes))
	if err != nil {
		return Image{}, fmt.Errorf("download image: %w", err)
	}
	return NewImage(data)
}
