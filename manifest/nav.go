package manifest

import "encoding/xml"

const (
	xhtmlNamespace = "http://www.w3.org/1999/xhtml"
	opsNamespace   = "http://www.idpf.org/2007/ops"
)

// navDocument is the shape of the EPUB 3 XHTML navigation document.
type navDocument struct {
	XMLName   xml.Name `xml:"html"`
	Xmlns     string   `xml:"xmlns,attr"`
	XmlnsEpub string   `xml:"xmlns:epub,attr"`
	Lang      string   `xml:"lang,attr,omitempty"`
	XMLLang   string   `xml:"xml:lang,attr,omitempty"`
	Head      navHead  `xml:"head"`
	Body      navBody  `xml:"body"`
}

type navHead struct {
	Title string `xml:"title"`
}

type navBody struct {
	Nav navTOC `xml:"nav"`
}

type navTOC struct {
	Type    string  `xml:"epub:type,attr"`
	ID      string  `xml:"id,attr"`
	Heading string  `xml:"h1"`
	List    navList `xml:"ol"`
}

type navList struct {
	Items []navItem `xml:"li"`
}

type navItem struct {
	Link navLink `xml:"a"`
}

type navLink struct {
	Href string `xml:"href,attr"`
	Text string `xml:",chardata"`
}

// Nav renders the EPUB 3 navigation document listing chapters in order.
func Nav(b *Book) ([]byte, error) {
	doc := navDocument{
		Xmlns:     xhtmlNamespace,
		XmlnsEpub: opsNamespace,
		Lang:      b.Language,
		XMLLang:   b.Language,
		Head:      navHead{Title: b.Title},
		Body: navBody{Nav: navTOC{
			Type:    "toc",
			ID:      "toc",
			Heading: b.Title,
		}},
	}

	for _, ch := range b.Chapters() {
		doc.Body.Nav.List.Items = append(doc.Body.Nav.List.Items, navItem{
			Link: navLink{Href: hrefFor(ch.Href), Text: ch.Title},
		})
	}

	return marshal(doc, "<!DOCTYPE html>")
}
