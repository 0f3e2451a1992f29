package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/vc-scout/backend/internal/metrics"
	"github.com/vc-scout/backend/pkg/logger"
	"github.com/vc-scout/backend/pkg/utils"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	defaultMaxChars  = 4000
	maxBodyBytes     = 2 << 20
)

var ErrUnsupportedURL = errors.New("website must be an absolute http or https url")

type Config struct {
	UserAgent string
	Timeout   time.Duration
	MaxChars  int
}

// Client fetches a company website and reduces it to readable text for the
// analyst prompt.
type Client struct {
	httpClient *http.Client
	userAgent  string
	maxChars   int
}

func NewClient(cfg Config) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = defaultMaxChars
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		userAgent:  cfg.UserAgent,
		maxChars:   cfg.MaxChars,
	}
}

// Fetch returns the page title, meta description and visible body text of
// rawURL, whitespace-collapsed and truncated to the configured length.
func (c *Client) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedURL, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ScrapeTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("failed to fetch %s: %w", u.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ScrapeTotal.WithLabelValues("bad_status").Inc()
		return "", fmt.Errorf("fetch %s returned status %d", u.Host, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.ScrapeTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	text := extractText(doc)
	metrics.ScrapeTotal.WithLabelValues("ok").Inc()
	logger.Debug("Website fetched", zap.String("host", u.Host), zap.Int("chars", len(text)))

	return utils.Truncate(text, c.maxChars), nil
}

func extractText(doc *goquery.Document) string {
	parts := make([]string, 0, 3)

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		parts = append(parts, title)
	}
	for _, sel := range []string{`meta[name="description"]`, `meta[property="og:description"]`} {
		if desc, ok := doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(desc) != "" {
			parts = append(parts, desc)
			break
		}
	}

	doc.Find("script, style, noscript, svg, nav, footer, header").Remove()
	parts = append(parts, doc.Find("body").Text())

	return utils.CollapseWhitespace(strings.Join(parts, " "))
}
