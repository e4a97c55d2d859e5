// Package feed renders the board's posts as an RSS 2.0 document.
package feed

import (
	"fmt"
	"strings"

	"github.com/Dan9191/secrets-board/internal/models"
	"github.com/beevik/etree"
)

// Channel describes the feed itself
type Channel struct {
	Title       string
	SiteURL     string
	Description string
}

// RSS builds an RSS 2.0 document listing posts
func RSS(ch Channel, posts []models.Post) ([]byte, error) {
	siteURL := strings.TrimRight(ch.SiteURL, "/")

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	rss := doc.CreateElement("rss")
	rss.CreateAttr("version", "2.0")

	channel := rss.CreateElement("channel")
	channel.CreateElement("title").SetText(ch.Title)
	channel.CreateElement("link").SetText(siteURL + "/posts")
	channel.CreateElement("description").SetText(ch.Description)

	for _, p := range posts {
		item := channel.CreateElement("item")
		item.CreateElement("title").SetText(p.Title)
		item.CreateElement("description").SetText(p.Content)
		link := fmt.Sprintf("%s/posts/%s/edit", siteURL, p.ID)
		item.CreateElement("link").SetText(link)
		guid := item.CreateElement("guid")
		guid.CreateAttr("isPermaLink", "false")
		guid.SetText(p.ID)
	}

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to write feed: %w", err)
	}
	return out, nil
}
