package httpx

import (
	"math"
	"net/http"
	"net/url"
	"strconv"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPage keeps page*page_size within an int32 OFFSET.
	MaxPage = math.MaxInt32 / MaxPageSize
)

type PageParams struct {
	Page     int
	PageSize int
}

func (p PageParams) Offset() int { return (p.Page - 1) * p.PageSize }

// ParsePage reads ?page= and ?page_size=, clamping to sane bounds.
func ParsePage(r *http.Request) PageParams {
	q := r.URL.Query()
	p := PageParams{Page: 1, PageSize: DefaultPageSize}
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		p.Page = min(v, MaxPage)
	}
	if v, err := strconv.Atoi(q.Get("page_size")); err == nil && v > 0 {
		p.PageSize = v
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

func NewPage[T any](r *http.Request, results []T, count int, p PageParams) Page[T] {
	if results == nil {
		results = []T{}
	}
	page := Page[T]{Count: count, Results: results}
	if p.Page*p.PageSize < count {
		u := pageURL(r, p.Page+1)
		page.Next = &u
	}
	if p.Page > 1 {
		u := pageURL(r, p.Page-1)
		page.Previous = &u
	}
	return page
}

func pageURL(r *http.Request, page int) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	q := r.URL.Query()
	q.Set("page", strconv.Itoa(page))
	u := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path, RawQuery: q.Encode()}
	return u.String()
}
