package feed

import (
	"encoding/xml"
	"fmt"
)

// feedEntry is the raw per-item view shared by RSS 2.0 and Atom before
// normalization into a domain.RawArticle.
type feedEntry struct {
	Title      string
	Link       string
	Summary    string
	Content    string
	Author     string
	GUID       string
	Published  string
	Categories []string
}

type rssEnvelope struct {
	XMLName xml.Name    `xml:"rss"`
	Channel *rssChannel `xml:"channel"`
}

type rssChannel struct {
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	Content     string   `xml:"http://purl.org/rss/1.0/modules/content/ encoded"`
	Author      string   `xml:"author"`
	Creator     string   `xml:"http://purl.org/dc/elements/1.1/ creator"`
	GUID        string   `xml:"guid"`
	PubDate     string   `xml:"pubDate"`
	Categories  []string `xml:"category"`
}

type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title     string     `xml:"title"`
	Links     []atomLink `xml:"link"`
	Summary   string     `xml:"summary"`
	Content   string     `xml:"content"`
	ID        string     `xml:"id"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
	Author    struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Categories []struct {
		Term string `xml:"term,attr"`
	} `xml:"category"`
}

type atomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

// parseFeed decodes an RSS 2.0 or Atom document into entries. The
// optional content:encoded extension is captured when present; callers
// fall back to the summary field.
func parseFeed(data []byte) ([]feedEntry, error) {
	var rss rssEnvelope
	if err := xml.Unmarshal(data, &rss); err == nil && rss.Channel != nil {
		entries := make([]feedEntry, 0, len(rss.Channel.Items))
		for _, item := range rss.Channel.Items {
			author := item.Author
			if author == "" {
				author = item.Creator
			}
			entries = append(entries, feedEntry{
				Title:      item.Title,
				Link:       item.Link,
				Summary:    item.Description,
				Content:    item.Content,
				Author:     author,
				GUID:       item.GUID,
				Published:  item.PubDate,
				Categories: item.Categories,
			})
		}
		return entries, nil
	}

	var atom atomFeed
	if err := xml.Unmarshal(data, &atom); err == nil && atom.XMLName.Local == "feed" {
		entries := make([]feedEntry, 0, len(atom.Entries))
		for _, entry := range atom.Entries {
			published := entry.Published
			if published == "" {
				published = entry.Updated
			}
			categories := make([]string, 0, len(entry.Categories))
			for _, cat := range entry.Categories {
				if cat.Term != "" {
					categories = append(categories, cat.Term)
				}
			}
			entries = append(entries, feedEntry{
				Title:      entry.Title,
				Link:       pickAtomLink(entry.Links),
				Summary:    entry.Summary,
				Content:    entry.Content,
				Author:     entry.Author.Name,
				GUID:       entry.ID,
				Published:  published,
				Categories: categories,
			})
		}
		return entries, nil
	}

	return nil, fmt.Errorf("document is neither RSS nor Atom")
}

func pickAtomLink(links []atomLink) string {
	for _, link := range links {
		if link.Rel == "" || link.Rel == "alternate" {
			return link.Href
		}
	}
	if len(links) > 0 {
		return links[0].Href
	}
	return ""
}
