package webtext

import (
	"mime"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// encodeText returns body as UTF-8 bytes; invalid sequences become U+FFFD.
func encodeText(body string) []byte {
	return []byte(strings.ToValidUTF8(body, "\uFFFD"))
}

// decodeText turns a response body into text. A byte order mark wins over the
// charset of contentType; UTF-8 is assumed when neither names an encoding.
func decodeText(body []byte, contentType string) string {
	var enc encoding.Encoding = unicode.UTF8
	if label := charsetOf(contentType); label != "" {
		if e, err := htmlindex.Get(label); err == nil {
			enc = e
		}
	}

	out, _, err := transform.Bytes(unicode.BOMOverride(enc.NewDecoder()), body)
	if err != nil {
		out = body
	}
	return strings.ToValidUTF8(string(out), "\uFFFD")
}

func charsetOf(contentType string) string {
	if strings.TrimSpace(contentType) == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(params["charset"]))
}
