package fetch

import (
	"log/slog"
	"mime"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// Decode converts a response body to a string using the charset declared in
// contentType, or UTF-8 when none is declared or it is unknown. Undecodable
// bytes become U+FFFD; Decode never fails.
func Decode(raw []byte, contentType string) string {
	name := charsetFromContentType(contentType)
	if name != "" && name != "utf-8" && name != "utf8" {
		enc, err := htmlindex.Get(name)
		if err == nil {
			if out, err := enc.NewDecoder().Bytes(raw); err == nil {
				return string(out)
			}
		} else {
			slog.Debug("Unknown response charset, decoding as UTF-8", "charset", name)
		}
	}

	out, err := unicode.UTF8.NewDecoder().Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), "\uFFFD")
	}
	return string(out)
}

func charsetFromContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(params["charset"]))
}
