// Package fetcher pulls complete result sets from paginated HTTP JSON APIs.
package fetcher

import "encoding/json"

// Record is one raw item from a page, decoded later by the caller.
type Record = json.RawMessage

// Page is an ordered batch of records plus the pagination metadata of
// whichever scheme produced it. Pages are never mutated; the fetcher only
// appends their records.
type Page struct {
	Records   []Record
	NextToken string
	NextURL   string
}

// Cursor is the position of the next page request under any of the three
// schemes. Exactly one field is meaningful per pager.
type Cursor struct {
	Offset int
	Token  string
	URL    string
}

// Pager is one of the three pagination conventions, modeled as a tagged
// variant with uniform termination and advancement rules instead of
// field-presence branching at call sites.
type Pager interface {
	// Cursor returns the position for the next page request.
	Cursor() Cursor
	// Done reports whether page was the last one.
	Done(page *Page) bool
	// Advance moves the cursor past page.
	Advance(page *Page)
}

// OffsetPager advances by a fixed page size; a short page signals the end.
type OffsetPager struct {
	PageSize int
	offset   int
}

// NewOffsetPager starts an offset/limit pagination at offset 0.
func NewOffsetPager(pageSize int) *OffsetPager {
	return &OffsetPager{PageSize: pageSize}
}

func (p *OffsetPager) Cursor() Cursor         { return Cursor{Offset: p.offset} }
func (p *OffsetPager) Done(page *Page) bool   { return len(page.Records) < p.PageSize }
func (p *OffsetPager) Advance(page *Page)     { p.offset += p.PageSize }

// TokenPager follows opaque continuation tokens; an absent or empty token
// in the response signals the end.
type TokenPager struct {
	token string
}

// NewTokenPager starts a token pagination with no token.
func NewTokenPager() *TokenPager { return &TokenPager{} }

func (p *TokenPager) Cursor() Cursor       { return Cursor{Token: p.token} }
func (p *TokenPager) Done(page *Page) bool { return page.NextToken == "" }
func (p *TokenPager) Advance(page *Page)   { p.token = page.NextToken }

// CursorPager follows rel="next" URLs extracted from the Link response
// header; a page without one is the last.
type CursorPager struct {
	url string
}

// NewCursorPager starts a link-header pagination at the given URL.
func NewCursorPager(startURL string) *CursorPager { return &CursorPager{url: startURL} }

func (p *CursorPager) Cursor() Cursor       { return Cursor{URL: p.url} }
func (p *CursorPager) Done(page *Page) bool { return page.NextURL == "" }
func (p *CursorPager) Advance(page *Page)   { p.url = page.NextURL }
