package util

import (
	"mime"
	"strings"
)

// SafeFileName strips directory parts, quotes and control characters from a
// download name. An empty result, or one made only of dots, yields fallback.
func SafeFileName(name, fallback string) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case r == '"' || r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	if strings.Trim(s, ". ") == "" {
		return fallback
	}
	return s
}

// AttachmentDisposition renders a Content-Disposition attachment header with a
// quoted filename. Names outside ASCII, such as Turkish document titles, are
// emitted in RFC 2231 form instead.
func AttachmentDisposition(name, fallback string) string {
	safe := SafeFileName(name, fallback)
	if isASCII(safe) {
		return `attachment; filename="` + safe + `"`
	}
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": safe}); v != "" {
		return v
	}
	return `attachment; filename="` + fallback + `"`
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
