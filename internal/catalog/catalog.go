// Package catalog reads product offers from YML-style XML feeds.
//
// The engine only needs three fields per offer (id, categoryId, vendor); the
// category tree is kept as well so filters can match descendant categories.
package catalog

import (
	"database/sql"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Static errors for feed loading.
var (
	// ErrEmptyOfferID is returned when an offer element has no id attribute.
	ErrEmptyOfferID = errors.New("catalog: offer without id")
	// ErrNoFeeds is returned when the feed directory holds no XML files.
	ErrNoFeeds = errors.New("catalog: no feed files found")
)

// Offer is a catalog entry to be rendered into a video.
// An absent categoryId or vendor element is reported as an invalid
// NullString, which is distinct from a present but empty element.
type Offer struct {
	ID         string
	CategoryID sql.NullString
	Vendor     sql.NullString
}

// Category is a node of the feed's category tree.
type Category struct {
	ID       string
	ParentID string
	Name     string
}

// Feed is the parsed content of one or more feed files.
type Feed struct {
	Offers     []Offer
	Categories []Category
}

type xmlOffer struct {
	ID         string  `xml:"id,attr"`
	CategoryID *string `xml:"categoryId"`
	Vendor     *string `xml:"vendor"`
}

type xmlCategory struct {
	ID       string `xml:"id,attr"`
	ParentID string `xml:"parentId,attr"`
	Name     string `xml:",chardata"`
}

// ParseFeed streams a feed document and collects every <offer> and
// <category> element regardless of nesting depth.
func ParseFeed(r io.Reader) (*Feed, error) {
	dec := xml.NewDecoder(r)
	feed := &Feed{}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return feed, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode feed: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "offer":
			var o xmlOffer
			if err := dec.DecodeElement(&o, &start); err != nil {
				return nil, fmt.Errorf("decode offer: %w", err)
			}
			if o.ID == "" {
				return nil, ErrEmptyOfferID
			}
			feed.Offers = append(feed.Offers, Offer{
				ID:         o.ID,
				CategoryID: nullString(o.CategoryID),
				Vendor:     nullString(o.Vendor),
			})
		case "category":
			var c xmlCategory
			if err := dec.DecodeElement(&c, &start); err != nil {
				return nil, fmt.Errorf("decode category: %w", err)
			}
			feed.Categories = append(feed.Categories, Category{
				ID:       c.ID,
				ParentID: c.ParentID,
				Name:     strings.TrimSpace(c.Name),
			})
		}
	}
}

// LoadFeeds parses the named files from dir and concatenates them in the
// given order. Offer ids are not deduplicated across files.
func LoadFeeds(dir string, names []string) (*Feed, error) {
	merged := &Feed{}
	for _, name := range names {
		path := filepath.Join(dir, name)
		f, err := os.Open(path) // #nosec G304 - path is built from the configured feed directory
		if err != nil {
			return nil, fmt.Errorf("open feed %s: %w", name, err)
		}
		feed, err := ParseFeed(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("parse feed %s: %w", name, err)
		}
		merged.Offers = append(merged.Offers, feed.Offers...)
		merged.Categories = append(merged.Categories, feed.Categories...)
	}
	return merged, nil
}

// ListFeeds returns the names of all *.xml files in dir, sorted.
func ListFeeds(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read feed directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), ".xml") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFeeds, dir)
	}
	sort.Strings(names)
	return names, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: strings.TrimSpace(*s), Valid: true}
}
