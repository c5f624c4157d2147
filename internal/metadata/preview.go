package metadata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

var ErrUnsupportedScheme = errors.New("metadata uri scheme not supported")

const defaultIPFSGateway = "https://ipfs.io/ipfs/"

// Preview is what a listing page shows about a property before anyone opens
// its metadata document.
type Preview struct {
	URI         string    `json:"uri"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"image,omitempty"`
	Address     string    `json:"address,omitempty"`
	AreaSqm     *int      `json:"area_sqm,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

type Fetcher struct {
	httpClient  *http.Client
	log         *zap.Logger
	maxRetries  int
	ipfsGateway string
}

func NewFetcher(timeoutMS, maxRetries int, log *zap.Logger) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutMS) * time.Millisecond,
		},
		log:         log,
		maxRetries:  maxRetries,
		ipfsGateway: defaultIPFSGateway,
	}
}

// Resolve maps a metadata uri to the http url it is fetched from.
func (f *Fetcher) Resolve(uri string) (string, error) {
	switch {
	case strings.HasPrefix(uri, "ipfs://"):
		return f.ipfsGateway + strings.TrimPrefix(uri, "ipfs://"), nil
	case strings.HasPrefix(uri, "https://"), strings.HasPrefix(uri, "http://"):
		return uri, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, uri)
	}
}

func (f *Fetcher) Fetch(ctx context.Context, uri string) (*Preview, error) {
	url, err := f.Resolve(uri)
	if err != nil {
		return nil, err
	}

	var doc *goquery.Document
	var lastErr error

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "text/html")

		resp, err := f.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
			if resp.StatusCode == http.StatusNotFound {
				break
			}
			continue
		}

		doc, err = goquery.NewDocumentFromReader(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		lastErr = nil
		break
	}

	if lastErr != nil {
		f.log.Warn("metadata fetch failed", zap.String("uri", uri), zap.Error(lastErr))
		return nil, lastErr
	}

	return parse(doc, uri), nil
}

func parse(doc *goquery.Document, uri string) *Preview {
	p := &Preview{
		URI:       uri,
		FetchedAt: time.Now().UTC(),
	}

	p.Title = firstNonEmpty(meta(doc, "og:title"), strings.TrimSpace(doc.Find("title").First().Text()))
	p.Description = firstNonEmpty(meta(doc, "og:description"), meta(doc, "description"))
	p.Image = meta(doc, "og:image")
	p.Address = firstNonEmpty(meta(doc, "property:address"), strings.TrimSpace(doc.Find("address").First().Text()))

	if area := meta(doc, "property:area"); area != "" {
		if n := parseArea(area); n > 0 {
			p.AreaSqm = &n
		}
	}

	if len(p.Description) > 500 {
		p.Description = p.Description[:500]
	}
	return p
}

// meta reads a <meta> tag by property or name.
func meta(doc *goquery.Document, key string) string {
	var out string
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		prop, _ := s.Attr("property")
		name, _ := s.Attr("name")
		if prop != key && name != key {
			return true
		}
		out, _ = s.Attr("content")
		out = strings.TrimSpace(out)
		return out == ""
	})
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var areaRE = regexp.MustCompile(`[\d][\d,. ]*`)

// parseArea reads "1,250 sqm" or "85.5 m2" as whole square metres; square
// feet are converted.
func parseArea(text string) int {
	lower := strings.ToLower(text)
	match := areaRE.FindString(lower)
	if match == "" {
		return 0
	}
	match = strings.ReplaceAll(match, " ", "")
	match = strings.ReplaceAll(match, ",", "")

	f, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	if strings.Contains(lower, "sq ft") || strings.Contains(lower, "sqft") || strings.Contains(lower, "ft2") {
		f *= 0.09290304
	}
	return int(f)
}
