package pagemeta

import (
	"bytes"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MaxHTMLBytes bounds how much of a page is parsed.
const MaxHTMLBytes = 1 << 20 // 1 MiB

// Meta is the headline metadata of an HTML page.
type Meta struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Empty reports whether nothing was extracted.
func (m Meta) Empty() bool {
	return m.Title == "" && m.Description == "" && m.ImageURL == ""
}

// IsHTML reports whether contentType names an HTML document.
func IsHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// LooksLikeHTML sniffs text when no content type is available.
func LooksLikeHTML(text string) bool {
	return IsHTML(http.DetectContentType([]byte(text)))
}

// Extract reads OG tags (falling back to <title> and meta description) from
// body. Relative image URLs are resolved against pageURL.
func Extract(body []byte, pageURL string) (Meta, error) {
	if len(body) > MaxHTMLBytes {
		body = body[:MaxHTMLBytes]
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Meta{}, fmt.Errorf("parse html: %w", err)
	}

	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	return Meta{
		Title: firstNonEmpty(
			extract(`meta[property="og:title"]`),
			strings.TrimSpace(doc.Find("title").First().Text()),
		),
		Description: firstNonEmpty(
			extract(`meta[property="og:description"]`),
			extract(`meta[name="description"]`),
		),
		ImageURL: resolveURL(extract(`meta[property="og:image"]`), pageURL),
	}, nil
}

// resolveURL makes ref absolute against base; unparsable input is returned unchanged.
func resolveURL(ref, base string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil || base == "" {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
