package monitor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/dqguard/pkg/httputil"
)

// ErrNoTable is returned when the selector matches nothing
var ErrNoTable = errors.New("no table matched selector")

// Fetcher pulls one batch from a source
type Fetcher interface {
	Fetch(ctx context.Context) (interface{}, error)
}

// FetcherFunc adapts a function to Fetcher
type FetcherFunc func(ctx context.Context) (interface{}, error)

// Fetch calls f
func (f FetcherFunc) Fetch(ctx context.Context) (interface{}, error) {
	return f(ctx)
}

// HTTPFetcher reads a JSON batch from a URL
type HTTPFetcher struct {
	client *httputil.Client
	url    string
}

// NewHTTPFetcher creates a JSON fetcher
func NewHTTPFetcher(client *httputil.Client, url string) *HTTPFetcher {
	return &HTTPFetcher{client: client, url: url}
}

// Fetch decodes the response body as-is; shape checks happen in the scorer
func (f *HTTPFetcher) Fetch(ctx context.Context) (interface{}, error) {
	var out interface{}
	if err := f.client.GetJSON(ctx, f.url, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// HTMLTableFetcher scrapes an HTML table into rows keyed by header text
type HTMLTableFetcher struct {
	client   *httputil.Client
	url      string
	selector string
}

// NewHTMLTableFetcher creates a table scraper. selector defaults to "table".
func NewHTMLTableFetcher(client *httputil.Client, url, selector string) *HTMLTableFetcher {
	if selector == "" {
		selector = "table"
	}
	return &HTMLTableFetcher{client: client, url: url, selector: selector}
}

// Fetch downloads the page and parses the first matching table
func (f *HTMLTableFetcher) Fetch(ctx context.Context) (interface{}, error) {
	body, err := f.client.GetBody(ctx, f.url)
	if err != nil {
		return nil, err
	}
	rows, err := ParseHTMLTable(body, f.selector)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.url, err)
	}
	return rows, nil
}

// ParseHTMLTable turns the first table matching selector into rows. The
// header row (th cells, or the first row) names the columns; empty cells
// and "-" become nil so completeness sees them as missing.
func ParseHTMLTable(html []byte, selector string) ([]map[string]interface{}, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	table := doc.Find(selector).First()
	if table.Length() == 0 {
		return nil, ErrNoTable
	}

	var headers []string
	table.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		th := row.Find("th")
		if th.Length() == 0 {
			return true
		}
		th.Each(func(_ int, cell *goquery.Selection) {
			headers = append(headers, headerKey(cell.Text()))
		})
		return false
	})

	rows := make([]map[string]interface{}, 0)
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return
		}
		// 헤더 행이 없으면 첫 데이터 행을 헤더로 사용
		if headers == nil {
			cells.Each(func(_ int, cell *goquery.Selection) {
				headers = append(headers, headerKey(cell.Text()))
			})
			return
		}

		r := make(map[string]interface{}, len(headers))
		cells.Each(func(i int, cell *goquery.Selection) {
			if i >= len(headers) || headers[i] == "" {
				return
			}
			r[headers[i]] = cellValue(cell.Text())
		})
		rows = append(rows, r)
	})

	return rows, nil
}

func headerKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), "_")
}

func cellValue(s string) interface{} {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return nil
	}
	// 천 단위 구분자 제거 (숫자 셀만)
	if plain := strings.ReplaceAll(s, ",", ""); plain != s && isNumeric(plain) {
		return plain
	}
	return s
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	dot := false
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' && !dot:
			dot = true
		case (r == '-' || r == '+') && i == 0:
		default:
			return false
		}
	}
	return true
}
