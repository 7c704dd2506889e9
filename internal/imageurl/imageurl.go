// Package imageurl converts between the comma-separated image field stored on
// a product and an ordered list of URLs, and derives download and thumbnail
// URLs from image ETags.
package imageurl

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	DefaultThumbWidth   = 100
	DefaultThumbHeight  = 100
	DefaultThumbQuality = 60
)

var etagPattern = regexp.MustCompile(`/download/([^/]+)$`)

// ParseImageURLs splits s on commas, trims every entry and drops empty ones.
// The result is never nil.
func ParseImageURLs(s string) []string {
	urls := []string{}
	for _, part := range strings.Split(s, ",") {
		if u := strings.TrimSpace(part); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// StringifyImageURLs joins urls with ", ".
func StringifyImageURLs(urls []string) string {
	return strings.Join(urls, ", ")
}

// ThumbnailURL appends the resize parameters understood by the image
// download endpoint.
func ThumbnailURL(u string, w, h, quality int) string {
	if u == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%sw=%d&h=%d&quality=%d", u, sep, w, h, quality)
}

func DefaultThumbnailURL(u string) string {
	return ThumbnailURL(u, DefaultThumbWidth, DefaultThumbHeight, DefaultThumbQuality)
}

// ExtractETag returns the path segment following "/download/" when it is the
// last segment of u.
func ExtractETag(u string) (string, bool) {
	m := etagPattern.FindStringSubmatch(u)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// FirstImage returns the first entry of the comma-separated field s.
func FirstImage(s string) (string, bool) {
	urls := ParseImageURLs(s)
	if len(urls) == 0 {
		return "", false
	}
	return urls[0], true
}

// DownloadURL builds the catalog download URL for an ETag.
func DownloadURL(baseURL, etag string) string {
	return strings.TrimRight(baseURL, "/") + "/api/v1/images/download/" + etag
}

// IsValidImageURL reports whether u is an absolute http or https URL.
func IsValidImageURL(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return false
	}
	return parsed.Scheme == "http" || parsed.Scheme == "https"
}
