package chart

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/waveger/backend/pkg/httputil"
)

// Billboard scrapes the public chart pages
type Billboard struct {
	http    *httputil.Client
	baseURL string
}

// NewBillboard creates an HTML scraping provider
func NewBillboard(client *httputil.Client, baseURL string) *Billboard {
	client.WithHeader("User-Agent", "Mozilla/5.0 (compatible; waveger/1.0)")
	return &Billboard{
		http:    client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name implements Provider
func (b *Billboard) Name() string { return "billboard" }

// Fetch implements Provider. The page is converted to the RapidAPI payload shape.
func (b *Billboard) Fetch(ctx context.Context, chartID string, date time.Time) ([]byte, error) {
	target := fmt.Sprintf("%s/charts/%s/%s/", b.baseURL, chartID, date.Format("2006-01-02"))

	resp, err := b.http.Get(ctx, target)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &httputil.StatusError{StatusCode: resp.StatusCode, URL: target}
	}

	html, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read billboard page: %w", err)
	}

	songs, err := parseChartHTML(html)
	if err != nil {
		return nil, err
	}
	if len(songs) == 0 {
		return nil, fmt.Errorf("billboard page %s has no chart rows", target)
	}
	return Encode(date, songs)
}

// parseChartHTML reads one chart page.
// Row layout: position, title (h3), artist (span after h3), then the
// last-week, peak and weeks-on-chart columns.
func parseChartHTML(html []byte) ([]Song, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse billboard page: %w", err)
	}

	var songs []Song
	doc.Find("ul.o-chart-results-list-row").Each(func(i int, row *goquery.Selection) {
		position, ok := parseNum(row.Find("li").First().Find("span.c-label").First().Text())
		if !ok {
			return
		}

		title := row.Find("h3#title-of-a-story").First()
		name := strings.TrimSpace(title.Text())
		if name == "" {
			return
		}
		artist := strings.TrimSpace(title.NextFiltered("span.c-label").Text())

		song := Song{Name: name, Artist: artist, Position: position}

		stats := row.Find("li.o-chart-results-list__item span.c-label")
		if n := stats.Length(); n >= 3 {
			if lw, ok := parseNum(stats.Eq(n - 3).Text()); ok {
				song.LastWeekPosition = &lw
			}
			song.PeakPosition, _ = parseNum(stats.Eq(n - 2).Text())
			song.WeeksOnChart, _ = parseNum(stats.Eq(n - 1).Text())
		}

		songs = append(songs, song)
	})

	return songs, nil
}

// parseNum reads an integer cell; "-" and blanks are absent
func parseNum(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
