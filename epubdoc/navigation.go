package epubdoc

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"net/url"
	"path"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

const ncxMediaType = "application/x-dtbncx+xml"

// NCX document (EPUB 2 navigation map).
type ncxDocument struct {
	XMLName xml.Name      `xml:"ncx"`
	Title   string        `xml:"docTitle>text"`
	Points  []ncxNavPoint `xml:"navMap>navPoint"`
}

type ncxNavPoint struct {
	ID        string        `xml:"id,attr"`
	PlayOrder string        `xml:"playOrder,attr"`
	Label     string        `xml:"navLabel>text"`
	Content   ncxContent    `xml:"content"`
	Children  []ncxNavPoint `xml:"navPoint"`
}

type ncxContent struct {
	Src string `xml:"src,attr"`
}

// TableOfContents returns the book's navigation. The EPUB 3 nav document
// wins over the NCX; when neither can be read the spine is used.
func (r *Reader) TableOfContents() *TableOfContents {
	if r.toc == nil {
		r.toc = r.parseNavigation(r.getZipReader())
	}
	return r.toc
}

func (r *Reader) parseNavigation(zr *zip.Reader) *TableOfContents {
	sources := []struct {
		item  *ManifestItem
		parse func([]byte) (*TableOfContents, error)
	}{
		{r.findNavDocument(), parseNavXHTML},
		{r.findNCX(), parseNCX},
	}

	for _, src := range sources {
		if src.item == nil {
			continue
		}
		docPath := r.resolveHref(src.item.Href)
		content, err := readZipFile(zr, docPath)
		if err != nil {
			continue
		}
		toc, err := src.parse(content)
		if err != nil {
			continue
		}
		resolveEntries(toc.Entries, path.Dir(docPath))
		return toc
	}

	return r.generateTOCFromSpine()
}

// findNavDocument finds the EPUB 3 nav document in the manifest.
func (r *Reader) findNavDocument() *ManifestItem {
	for i := range r.pkg.Manifest {
		if r.pkg.Manifest[i].HasProperty("nav") {
			return &r.pkg.Manifest[i]
		}
	}
	return nil
}

// findNCX finds the NCX named by the spine, or else the first item with the
// NCX media type.
func (r *Reader) findNCX() *ManifestItem {
	if r.pkg.TocID != "" {
		for i := range r.pkg.Manifest {
			if r.pkg.Manifest[i].ID == r.pkg.TocID {
				return &r.pkg.Manifest[i]
			}
		}
	}
	for i := range r.pkg.Manifest {
		if r.pkg.Manifest[i].MediaType == ncxMediaType {
			return &r.pkg.Manifest[i]
		}
	}
	return nil
}

// resolveEntries fills in the archive path of every entry. Hrefs in a
// navigation document are relative to that document.
func resolveEntries(entries []TOCEntry, dir string) {
	for i := range entries {
		e := &entries[i]
		if e.Href != "" {
			target := e.Href
			if j := strings.IndexByte(target, '#'); j >= 0 {
				target = target[:j]
			}
			if decoded, err := url.PathUnescape(target); err == nil {
				target = decoded
			}
			if target != "" {
				e.Path = path.Join(dir, target)
			}
		}
		resolveEntries(e.Children, dir)
	}
}

// parseNavXHTML reads the toc nav of an EPUB 3 navigation document.
func parseNavXHTML(content []byte) (*TableOfContents, error) {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	nav := findElement(doc, func(n *html.Node) bool {
		if n.Data != "nav" {
			return false
		}
		t, _ := attr(n, "epub:type")
		if t == "" {
			t, _ = attr(n, "type")
		}
		return strings.Contains(t, "toc")
	})
	if nav == nil {
		return nil, ErrMissingContent
	}

	toc := &TableOfContents{}
	if h := findElement(nav, isHeading); h != nil {
		toc.Title = extractText(h)
	}
	if ol := findElement(nav, func(n *html.Node) bool { return n.Data == "ol" }); ol != nil {
		order := 0
		toc.Entries = parseOLEntries(ol, &order)
	}
	return toc, nil
}

// parseOLEntries reads the <li> children of an <ol>, numbering entries in
// document order.
func parseOLEntries(ol *html.Node, order *int) []TOCEntry {
	var entries []TOCEntry
	for li := ol.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}

		var entry TOCEntry
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "a":
				entry.Title = extractText(c)
				entry.Href, _ = attr(c, "href")
			case "span":
				if entry.Title == "" {
					entry.Title = extractText(c)
				}
			}
		}
		if entry.Title == "" && entry.Href == "" {
			continue
		}

		*order++
		entry.PlayOrder = *order
		if sub := findElement(li, func(n *html.Node) bool { return n.Data == "ol" }); sub != nil {
			entry.Children = parseOLEntries(sub, order)
		}
		entries = append(entries, entry)
	}
	return entries
}

// parseNCX parses an EPUB 2 NCX document.
func parseNCX(content []byte) (*TableOfContents, error) {
	var ncx ncxDocument
	if err := xml.Unmarshal(content, &ncx); err != nil {
		return nil, err
	}

	return &TableOfContents{
		Title:   strings.TrimSpace(ncx.Title),
		Entries: convertNavPoints(ncx.Points),
	}, nil
}

func convertNavPoints(points []ncxNavPoint) []TOCEntry {
	entries := make([]TOCEntry, 0, len(points))
	for _, p := range points {
		order, _ := strconv.Atoi(strings.TrimSpace(p.PlayOrder))
		entries = append(entries, TOCEntry{
			Title:     strings.TrimSpace(p.Label),
			Href:      p.Content.Src,
			PlayOrder: order,
			Children:  convertNavPoints(p.Children),
		})
	}
	return entries
}

// generateTOCFromSpine builds a flat TOC from the loaded chapters.
func (r *Reader) generateTOCFromSpine() *TableOfContents {
	toc := &TableOfContents{
		Title:   r.pkg.Metadata.Title,
		Entries: make([]TOCEntry, 0, len(r.chapters)),
	}

	for i, ch := range r.chapters {
		title := ch.Title
		if title == "" {
			title = ch.ID
		}
		toc.Entries = append(toc.Entries, TOCEntry{
			Title:     title,
			Href:      ch.Href,
			Path:      ch.Href,
			PlayOrder: i + 1,
		})
	}
	return toc
}

// findElement returns the first element below n (depth first, n included)
// that satisfies match.
func findElement(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, match); found != nil {
			return found
		}
	}
	return nil
}

func isHeading(n *html.Node) bool {
	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// extractText returns the whitespace-collapsed text below n.
func extractText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
