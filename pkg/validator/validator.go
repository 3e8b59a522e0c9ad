package validator

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/h2non/filetype"
)

// ErrUnsupportedImage is returned for uploads that are not an accepted image type
var ErrUnsupportedImage = errors.New("unsupported image type")

// accepted upload types, by MIME
var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
}

// ValidateHTTPURL reports whether raw is an absolute http(s) URL
func ValidateHTTPURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// ValidateURL reports whether raw is an http(s) URL on one of allowedHosts.
// An entry matches the host and its subdomains; an entry with a port must
// match host:port exactly.
func ValidateURL(raw string, allowedHosts []string) bool {
	if !ValidateHTTPURL(raw) {
		return false
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}

	hostPort := strings.ToLower(u.Host)
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")

	for _, domain := range allowedHosts {
		cleanDomain := strings.ToLower(strings.TrimSpace(domain))
		if len(cleanDomain) == 0 {
			continue
		}

		if strings.Contains(cleanDomain, ":") {
			if hostPort == cleanDomain {
				return true
			}
			continue
		}
		if host == cleanDomain || strings.HasSuffix(host, "."+cleanDomain) {
			return true
		}
	}

	return false
}

// SniffImage detects the image type from its leading bytes
func SniffImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrUnsupportedImage
	}
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return "", ErrUnsupportedImage
	}
	if !imageTypes[kind.MIME.Value] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, kind.MIME.Value)
	}
	return kind.MIME.Value, nil
}

// SanitizeFilename removes dangerous characters from filename
func SanitizeFilename(filename string) string {
	dangerousChars := []string{"<", ">", ":", "\"", "/", "\\", "|", "?", "*", "\x00"}
	result := filename
	for _, char := range dangerousChars {
		result = strings.ReplaceAll(result, char, "_")
	}
	return result
}

// TruncateFilename truncates filename to max length while preserving extension
// Uses rune-level truncation to properly handle UTF-8 multi-byte characters
func TruncateFilename(filename string, maxLen int) string {
	runes := []rune(filename)
	if len(runes) <= maxLen {
		return filename
	}

	lastDot := strings.LastIndex(filename, ".")
	if lastDot == -1 {
		return string(runes[:maxLen])
	}

	ext := filename[lastDot:]
	availableLen := maxLen - len([]rune(ext))
	if availableLen <= 0 {
		return string(runes[:maxLen])
	}

	return string(runes[:availableLen]) + ext
}

// ContentDisposition builds a Content-Disposition header value, using
// RFC 5987 encoding for unicode and special characters
func ContentDisposition(filename string, inline bool) string {
	disposition := "attachment"
	if inline {
		disposition = "inline"
	}
	filename = TruncateFilename(SanitizeFilename(filename), 200)

	needsEncoding := strings.ContainsAny(filename, " \t\n\r")
	for _, r := range filename {
		if r > 127 || r == '"' || r == '\\' || r == ';' || r == ',' {
			needsEncoding = true
			break
		}
	}

	if !needsEncoding {
		return fmt.Sprintf(`%s; filename="%s"`, disposition, filename)
	}

	return fmt.Sprintf(`%s; filename*=UTF-8''%s`, disposition, url.PathEscape(filename))
}
