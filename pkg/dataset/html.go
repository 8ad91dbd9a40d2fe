package dataset

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

// MaxBodySize caps the HTML read from untrusted URLs.
const MaxBodySize = 10 * 1024 * 1024

var (
	// (?s) lets dot match newlines, (?i) ignores case
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// SanitizeRuby removes ruby text (<rt>) and ruby parentheses (<rp>) from
// HTML. readability keeps all text, so furigana would otherwise be glued to
// its base text ("漢字" becoming "漢字かんじ").
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, nil)
	return reRP.ReplaceAll(cleaned, nil)
}

// FromHTML extracts the main article of a page as a proposal with the given
// ID. pageURL resolves relative links and may be empty.
func FromHTML(id int, r io.Reader, pageURL string) (Proposal, error) {
	body, err := io.ReadAll(io.LimitReader(r, MaxBodySize+1))
	if err != nil {
		return Proposal{}, err
	}
	if len(body) > MaxBodySize {
		return Proposal{}, fmt.Errorf("html body exceeds %d bytes", MaxBodySize)
	}
	body = SanitizeRuby(body)

	parsed := &url.URL{}
	if pageURL != "" {
		if parsed, err = url.Parse(pageURL); err != nil {
			return Proposal{}, fmt.Errorf("parse url: %w", err)
		}
	}
	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		return Proposal{}, fmt.Errorf("extract article: %w", err)
	}
	return Proposal{
		ID:      id,
		Title:   strings.TrimSpace(article.Title),
		Summary: strings.TrimSpace(article.TextContent),
	}, nil
}

// Fetcher downloads pages for FromHTML.
type Fetcher struct {
	Client    *http.Client
	UserAgent string
}

// NewFetcher returns a Fetcher with a 30 second client timeout and a desktop
// browser user agent, which some sites require.
func NewFetcher() *Fetcher {
	return &Fetcher{
		Client:    &http.Client{Timeout: 30 * time.Second},
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// Fetch downloads pageURL and extracts it as a proposal.
func (f *Fetcher) Fetch(ctx context.Context, id int, pageURL string) (Proposal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Proposal{}, err
	}
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "es-ES,es;q=0.9,en;q=0.8")

	resp, err := f.Client.Do(req)
	if err != nil {
		return Proposal{}, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Proposal{}, fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}
	if resp.ContentLength > MaxBodySize {
		return Proposal{}, fmt.Errorf("fetch %s: content length %d exceeds %d bytes", pageURL, resp.ContentLength, MaxBodySize)
	}
	return FromHTML(id, resp.Body, pageURL)
}
