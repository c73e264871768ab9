package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/aviva/internal/contentservice"
)

const maxVideoSize = 100 << 20 // 100 MB

// sniffed maps http.DetectContentType results onto the declared types they
// may stand for. Audio without an ID3 header sniffs as octet-stream.
var sniffed = map[string][]string{
	"video/mp4":                {"video/mp4"},
	"video/webm":               {"video/webm"},
	"application/ogg":          {"video/ogg", "audio/ogg"},
	"audio/mpeg":               {"audio/mpeg"},
	"application/octet-stream": {"audio/mpeg"},
}

type uploadResult struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func (s *Server) uploadVideo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var data []byte
	var ctype string
	if strings.HasPrefix(rawURL, "data:") {
		data, ctype, err = decodeDataURI(rawURL)
	} else {
		data, ctype, err = fetchHTTP(ctx, rawURL)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := validateMagicBytes(data, ctype); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	stored, err := s.uploads.Save(bytes.NewReader(data), nameFromURL(rawURL), ctype, int64(len(data)))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	video, err := s.svc.AddUploadedVideo(ctx, contentservice.VideoInput{
		Title:       optString(req, "title"),
		Duration:    optString(req, "duration"),
		Description: optString(req, "description"),
		Category:    optString(req, "category"),
	}, stored)
	if err != nil {
		_ = s.uploads.Remove(stored)
		return mcp.NewToolResultError(err.Error()), nil
	}

	out, _ := json.Marshal(uploadResult{ID: video.ID, URL: video.URL})
	return mcp.NewToolResultText(string(out)), nil
}

func optString(req mcp.CallToolRequest, key string) string {
	if v, err := req.RequireString(key); err == nil {
		return v
	}
	return ""
}

// decodeDataURI parses a data:<mediatype>;base64,<data> URI.
func decodeDataURI(uri string) ([]byte, string, error) {
	rest := strings.TrimPrefix(uri, "data:")
	commaIdx := strings.Index(rest, ",")
	if commaIdx < 0 {
		return nil, "", fmt.Errorf("invalid data URI: missing comma separator")
	}

	meta := rest[:commaIdx]
	encoded := rest[commaIdx+1:]

	if !strings.HasSuffix(meta, ";base64") {
		return nil, "", fmt.Errorf("only base64 data URIs are supported")
	}
	if base64.StdEncoding.DecodedLen(len(encoded)) > maxVideoSize {
		return nil, "", fmt.Errorf("file too large: exceeds %d bytes", maxVideoSize)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("invalid base64 data: %w", err)
		}
	}
	return data, strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0], nil
}

// fetchHTTP downloads a file from an HTTP/HTTPS URL with security checks.
func fetchHTTP(ctx context.Context, rawURL string) ([]byte, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, "", fmt.Errorf("unsupported scheme: %s (only http/https)", parsed.Scheme)
	}
	if err := checkBlockedHost(parsed.Hostname()); err != nil {
		return nil, "", err
	}

	client := &http.Client{
		Timeout: 2 * time.Minute,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (max 5)")
			}
			return checkBlockedHost(req.URL.Hostname())
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxVideoSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > maxVideoSize {
		return nil, "", fmt.Errorf("file too large: exceeds %d bytes", maxVideoSize)
	}

	ctype, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return data, ctype, nil
}

// checkBlockedHost rejects loopback and cloud metadata addresses.
func checkBlockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(ips) == 0 {
			return nil //nolint:nilerr // let http.Client handle DNS failures
		}
		ip = ips[0]
	}

	if ip.IsLoopback() {
		return fmt.Errorf("blocked host: loopback address %s", host)
	}
	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return fmt.Errorf("blocked host: cloud metadata address %s", host)
	}
	if ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
		return fmt.Errorf("blocked host: private address %s", host)
	}
	return nil
}

// nameFromURL returns the last path element of an http(s) URL. Data URIs
// have no name; the stored file then takes its extension from the MIME type.
func nameFromURL(rawURL string) string {
	if strings.HasPrefix(rawURL, "data:") {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	base := path.Base(parsed.Path)
	if base == "." || base == "/" {
		return ""
	}
	return base
}

// validateMagicBytes verifies the content matches the declared MIME type.
func validateMagicBytes(data []byte, ctype string) error {
	detected := strings.Split(http.DetectContentType(data), ";")[0]
	for _, t := range sniffed[detected] {
		if t == ctype {
			return nil
		}
	}
	return fmt.Errorf("content does not match type %s (detected: %s)", ctype, detected)
}
