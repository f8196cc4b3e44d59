// Package syndication exports listings as an RSS 2.0 feed.
package syndication

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/bryan-buckman/hearth/internal/model"
)

// MaxItems caps the number of listings in a feed.
const MaxItems = 50

// RSS represents the root of an RSS 2.0 document.
type RSS struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	Channel Channel  `xml:"channel"`
}

// Channel contains feed metadata and items.
type Channel struct {
	Title         string `xml:"title"`
	Link          string `xml:"link"`
	Description   string `xml:"description"`
	LastBuildDate string `xml:"lastBuildDate,omitempty"`
	Items         []Item `xml:"item"`
}

// Item is a single listing in the feed.
type Item struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        GUID   `xml:"guid"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

// GUID identifies an item.
type GUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// Export generates an RSS document from listings, which are expected newest
// first. Contact details are never written.
func Export(title, baseURL string, listings []model.Listing, now time.Time) ([]byte, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	doc := RSS{
		Version: "2.0",
		Channel: Channel{
			Title:         title,
			Link:          baseURL + "/",
			Description:   "Latest property listings",
			LastBuildDate: now.UTC().Format(time.RFC1123Z),
		},
	}

	if len(listings) > MaxItems {
		listings = listings[:MaxItems]
	}
	for _, l := range listings {
		doc.Channel.Items = append(doc.Channel.Items, Item{
			Title:       l.Title,
			Link:        fmt.Sprintf("%s/#listing-%s", baseURL, l.ID),
			GUID:        GUID{Value: "listing:" + l.ID},
			Description: describe(l),
			PubDate:     l.CreatedAt.UTC().Format(time.RFC1123Z),
		})
	}

	output, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), output...), nil
}

func describe(l model.Listing) string {
	var parts []string
	addr := l.Location.Address
	if l.Location.PostalCode != "" {
		addr += " " + l.Location.PostalCode
	}
	if addr != "" {
		parts = append(parts, addr)
	}
	if len(l.Prices) > 0 {
		prices := make([]string, 0, len(l.Prices))
		for _, p := range l.Prices {
			prices = append(prices, fmt.Sprintf("%s %.0f", p.Type, p.Amount))
		}
		parts = append(parts, strings.Join(prices, ", "))
	}
	if len(l.Features) > 0 {
		parts = append(parts, strings.Join(l.Features, ", "))
	}
	if l.Verified {
		parts = append(parts, "Verified")
	}
	return strings.Join(parts, " | ")
}
