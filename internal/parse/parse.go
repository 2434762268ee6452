package parse

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/TobiSchelling/commentpulse/internal/record"
)

// Default selectors match the article markup of the listing pages we scrape.
const (
	DefaultArticleSelector     = "article"
	DefaultTitleSelector       = "h1, h2, h3, h4, h5, h6"
	DefaultDescriptionSelector = "p.description"
	DefaultCommentSelector     = "div.comment"
)

// Selectors configures where each field lives inside the markup.
type Selectors struct {
	Article     string
	Title       string
	Description string
	Comment     string
}

// ParseError reports an article block that is missing a required field.
type ParseError struct {
	Block int // zero-based index of the article block on the page
	Field string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("article %d: missing %s element", e.Block, e.Field)
}

// Parser extracts records from listing page markup.
type Parser struct {
	sel Selectors
}

// New creates a Parser. Empty selectors fall back to the defaults.
func New(sel Selectors) *Parser {
	if sel.Article == "" {
		sel.Article = DefaultArticleSelector
	}
	if sel.Title == "" {
		sel.Title = DefaultTitleSelector
	}
	if sel.Description == "" {
		sel.Description = DefaultDescriptionSelector
	}
	if sel.Comment == "" {
		sel.Comment = DefaultCommentSelector
	}
	return &Parser{sel: sel}
}

// Parse returns one record per article block, in document order.
// A block without a title or description fails the whole page.
func (p *Parser) Parse(markup string) ([]record.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parsing markup: %w", err)
	}

	var (
		records  []record.Record
		parseErr error
	)
	doc.Find(p.sel.Article).EachWithBreak(func(i int, block *goquery.Selection) bool {
		rec, err := p.parseBlock(i, block)
		if err != nil {
			parseErr = err
			return false
		}
		records = append(records, rec)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return records, nil
}

func (p *Parser) parseBlock(i int, block *goquery.Selection) (record.Record, error) {
	title := block.Find(p.sel.Title).First()
	if title.Length() == 0 {
		return record.Record{}, &ParseError{Block: i, Field: "title"}
	}
	desc := block.Find(p.sel.Description).First()
	if desc.Length() == 0 {
		return record.Record{}, &ParseError{Block: i, Field: "description"}
	}

	comments := []string{}
	block.Find(p.sel.Comment).Each(func(_ int, c *goquery.Selection) {
		comments = append(comments, strings.TrimSpace(c.Text()))
	})

	return record.Record{
		Title:       strings.TrimSpace(title.Text()),
		Description: strings.TrimSpace(desc.Text()),
		Comments:    comments,
	}, nil
}
