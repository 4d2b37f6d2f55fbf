package player

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Supported container formats.
const (
	FormatMP3  = "mp3"
	FormatFLAC = "flac"
	FormatWAV  = "wav"
)

// maxRemoteSize caps how much of a remote source is buffered in memory.
const maxRemoteSize = 512 << 20

// source is an opened, seekable audio stream.
type source struct {
	r      io.ReadSeeker
	closer io.Closer
	format string
	size   int64
}

func (s *source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

func isRemote(locator string) bool {
	return strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://")
}

// openSource resolves a locator: http(s) URLs are fetched and buffered,
// anything else is read from the local filesystem.
func openSource(ctx context.Context, client *http.Client, locator string) (*source, error) {
	if isRemote(locator) {
		return fetchSource(ctx, client, locator)
	}

	format := FormatFromName(locator)
	if format == "" {
		return nil, fmt.Errorf("unsupported format: %s", filepath.Ext(locator))
	}
	f, err := os.Open(locator)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &source{r: f, closer: f, format: format, size: info.Size()}, nil
}

func fetchSource(ctx context.Context, client *http.Client, locator string) (*source, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", locator, resp.Status)
	}

	format := FormatFromContentType(resp.Header.Get("Content-Type"))
	if format == "" {
		if u, err := url.Parse(locator); err == nil {
			format = FormatFromName(u.Path)
		}
	}
	if format == "" {
		return nil, fmt.Errorf("fetch %s: unknown audio format %q", locator, resp.Header.Get("Content-Type"))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxRemoteSize {
		return nil, fmt.Errorf("fetch %s: source larger than %d bytes", locator, maxRemoteSize)
	}
	return &source{r: bytes.NewReader(data), format: format, size: int64(len(data))}, nil
}

// FormatFromName returns the format implied by a file name extension, or "".
func FormatFromName(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".mp3":
		return FormatMP3
	case ".flac":
		return FormatFLAC
	case ".wav", ".wave":
		return FormatWAV
	default:
		return ""
	}
}

// FormatFromContentType returns the format for a MIME type, or "".
func FormatFromContentType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	switch mt {
	case "audio/mpeg", "audio/mp3":
		return FormatMP3
	case "audio/flac", "audio/x-flac":
		return FormatFLAC
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return FormatWAV
	default:
		return ""
	}
}

// ContentType returns the MIME type used when serving a format.
func ContentType(format string) string {
	switch format {
	case FormatMP3:
		return "audio/mpeg"
	case FormatFLAC:
		return "audio/flac"
	case FormatWAV:
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}
