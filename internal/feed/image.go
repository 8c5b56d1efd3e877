package feed

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"
)

var imgTagRe = regexp.MustCompile(`<img[^>]+src=["']([^"']+)["']`)

// ExtractImage picks the best image URL from a feed entry.
// Priority: item image > media:thumbnail > media:content (image) >
// enclosure (image/*) > first <img src=...> in content or description.
// Only http/https URLs are accepted.
func ExtractImage(item *gofeed.Item) string {
	if item.Image != nil && validImageScheme(item.Image.URL) {
		return item.Image.URL
	}

	if mediaExt, ok := item.Extensions["media"]; ok {
		if thumbs, ok := mediaExt["thumbnail"]; ok {
			for _, t := range thumbs {
				if u := t.Attrs["url"]; validImageScheme(u) {
					return u
				}
			}
		}
		if contents, ok := mediaExt["content"]; ok {
			for _, c := range contents {
				if c.Attrs["medium"] != "image" && !strings.HasPrefix(c.Attrs["type"], "image") {
					continue
				}
				if u := c.Attrs["url"]; validImageScheme(u) {
					return u
				}
			}
		}
	}

	for _, enc := range item.Enclosures {
		if strings.HasPrefix(enc.Type, "image/") && validImageScheme(enc.URL) {
			return enc.URL
		}
	}

	for _, text := range []string{item.Content, item.Description} {
		if m := imgTagRe.FindStringSubmatch(text); m != nil && validImageScheme(m[1]) {
			return m[1]
		}
	}

	return ""
}

func validImageScheme(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
