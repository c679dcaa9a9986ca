// Package encoding provides text encoding utilities for archive file names.
package encoding

import (
	"bytes"
	"path"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// EUCKRToUTF8 converts EUC-KR encoded bytes to UTF-8 string.
// Plain ASCII is returned as-is; anything else is decoded as EUC-KR, so
// callers must not pass text that is already UTF-8.
func EUCKRToUTF8(data []byte) string {
	if isASCII(data) {
		return string(data)
	}
	decoder := korean.EUCKR.NewDecoder()
	result, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// UTF8ToEUCKR converts UTF-8 string to EUC-KR encoded bytes.
// Returns the original bytes if conversion fails.
func UTF8ToEUCKR(s string) []byte {
	encoder := korean.EUCKR.NewEncoder()
	result, _, err := transform.Bytes(encoder, []byte(s))
	if err != nil {
		return []byte(s)
	}
	return result
}

// NormalizeModelPath normalizes an archive path for case-insensitive lookup
// and deduplication: backslashes become slashes, the path is lowercased and
// cleaned of "./" segments and surrounding whitespace.
func NormalizeModelPath(p string) string {
	p = strings.TrimSpace(p)
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.ToLower(p)
	if p == "" {
		return ""
	}
	p = path.Clean(p)
	return strings.TrimPrefix(p, "/")
}

// CString extracts a null-terminated string and decodes it from EUC-KR.
func CString(data []byte) string {
	if idx := bytes.IndexByte(data, 0); idx >= 0 {
		data = data[:idx]
	}
	return EUCKRToUTF8(data)
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
