package pagefetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"tixwatch-backend/lib/htmlutil"
	"tixwatch-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

// DataLayer is the analytics metadata an activity page pushes into its
// dataLayer script.
type DataLayer struct {
	ArtistName string
	Category   string
	GameCode   string
	Promoter   string
}

// Page is one observation of an activity page.
type Page struct {
	URL   string
	Title string
	// Lines are the lines of the activity introduction, the input of the
	// classifier.
	Lines []string
	// Text is the visible text of the whole page, one line per row.
	Text      string
	DataLayer DataLayer
}

var dataLayerKeys = map[string]func(d *DataLayer, v string){
	"artistName":        func(d *DataLayer, v string) { d.ArtistName = v },
	"childCategoryName": func(d *DataLayer, v string) { d.Category = v },
	"gameCode":          func(d *DataLayer, v string) { d.GameCode = v },
	"promoter":          func(d *DataLayer, v string) { d.Promoter = v },
}

var dataLayerRegexes = func() map[string][]*regexp.Regexp {
	out := make(map[string][]*regexp.Regexp, len(dataLayerKeys))
	for key := range dataLayerKeys {
		out[key] = []*regexp.Regexp{
			regexp.MustCompile(fmt.Sprintf(`["']?%s["']?\s*:\s*"((?:[^"\\]|\\.)*)"`, key)),
			regexp.MustCompile(fmt.Sprintf(`["']?%s["']?\s*:\s*'([^']*)'`, key)),
		}
	}
	return out
}()

// parseDataLayer scans script bodies for the known dataLayer keys. The
// first occurrence of a key wins.
func parseDataLayer(scripts []string) DataLayer {
	var out DataLayer
	found := make(map[string]bool)
	for _, script := range scripts {
		if !strings.Contains(script, "dataLayer") {
			continue
		}
		for key, set := range dataLayerKeys {
			if found[key] {
				continue
			}
			for i, re := range dataLayerRegexes[key] {
				m := re.FindStringSubmatch(script)
				if m == nil {
					continue
				}
				value := m[1]
				if i == 0 {
					var decoded string
					if err := json.Unmarshal([]byte(`"`+value+`"`), &decoded); err == nil {
						value = decoded
					}
				}
				set(&out, textutil.Clean(value))
				found[key] = true
				break
			}
		}
	}
	return out
}

var siteSuffixRegex = regexp.MustCompile(`(?i)拓元售票|tixcraft`)

// cleanDocumentTitle keeps the part of <title> before the first "-" and
// drops site branding.
func cleanDocumentTitle(title string) string {
	title, _, _ = strings.Cut(title, "-")
	title = siteSuffixRegex.ReplaceAllString(title, "")
	return strings.Trim(textutil.Clean(title), "|｜ ")
}

// Parse builds a Page from an activity page document. Title precedence is
// the dataLayer artist name, the synopsis title, the first heading, then
// the document title.
func Parse(pageURL string, body io.Reader) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return Page{}, fmt.Errorf("parse %s: %w", pageURL, err)
	}

	var scripts []string
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		scripts = append(scripts, s.Text())
	})
	page := Page{
		URL:       pageURL,
		DataLayer: parseDataLayer(scripts),
	}

	candidates := []string{
		page.DataLayer.ArtistName,
		textutil.Clean(doc.Find("#synopsisEventTitle").First().Text()),
		textutil.Clean(doc.Find("h1").First().Text()),
		cleanDocumentTitle(doc.Find("title").First().Text()),
	}
	for _, c := range candidates {
		if c != "" {
			page.Title = c
			break
		}
	}

	bodyLines := htmlutil.Lines(doc.Find("body"))
	page.Text = strings.Join(bodyLines, "\n")

	page.Lines = htmlutil.Lines(doc.Find("#intro"))
	if len(page.Lines) == 0 {
		page.Lines = bodyLines
	}
	return page, nil
}

const detailPathMarker = "activity/detail"

// ParseListing returns the activity detail links of a listing page in page
// order, resolved against base and without duplicates.
func ParseListing(ctx context.Context, base *url.URL, body io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}

	anchors := htmlutil.GetAnchors(ctx, doc.Find("div.thumbnails a"), base)
	if len(anchors) == 0 {
		anchors = htmlutil.GetAnchors(ctx, doc.Find("a[href]"), base)
	}

	var out []string
	seen := make(map[string]bool)
	for _, a := range anchors {
		if !strings.Contains(a.Href, detailPathMarker) || seen[a.Href] {
			continue
		}
		seen[a.Href] = true
		out = append(out, a.Href)
	}
	return out, nil
}
