package manifest

import (
	"encoding/xml"
	"fmt"
)

const (
	ncxNamespace = "http://www.daisy.org/z3986/2005/ncx/"
	ncxDoctype   = `<!DOCTYPE ncx PUBLIC "-//NISO//DTD ncx 2005-1//EN" "http://www.daisy.org/z3986/2005/ncx-2005-1.dtd">`
)

// ncxDocument is the shape of the EPUB 2 navigation map.
type ncxDocument struct {
	XMLName xml.Name  `xml:"ncx"`
	Xmlns   string    `xml:"xmlns,attr"`
	Version string    `xml:"version,attr"`
	Lang    string    `xml:"xml:lang,attr,omitempty"`
	Head    ncxHead   `xml:"head"`
	Title   string    `xml:"docTitle>text"`
	Author  *ncxText  `xml:"docAuthor,omitempty"`
	NavMap  ncxNavMap `xml:"navMap"`
}

type ncxText struct {
	Text string `xml:"text"`
}

type ncxHead struct {
	Meta []ncxMeta `xml:"meta"`
}

type ncxMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

type ncxNavMap struct {
	NavPoints []ncxNavPoint `xml:"navPoint"`
}

type ncxNavPoint struct {
	ID        string     `xml:"id,attr"`
	PlayOrder int        `xml:"playOrder,attr"`
	Label     string     `xml:"navLabel>text"`
	Content   ncxContent `xml:"content"`
}

type ncxContent struct {
	Src string `xml:"src,attr"`
}

// NCX renders the navigation map with one navPoint per chapter.
func NCX(b *Book) ([]byte, error) {
	doc := ncxDocument{
		Xmlns:   ncxNamespace,
		Version: "2005-1",
		Lang:    b.Language,
		Head: ncxHead{Meta: []ncxMeta{
			{Name: "dtb:uid", Content: b.Identifier},
			{Name: "dtb:depth", Content: "1"},
			{Name: "dtb:totalPageCount", Content: "0"},
			{Name: "dtb:maxPageNumber", Content: "0"},
		}},
		Title: b.Title,
	}
	if b.Author != "" {
		doc.Author = &ncxText{Text: b.Author}
	}

	for i, ch := range b.Chapters() {
		doc.NavMap.NavPoints = append(doc.NavMap.NavPoints, ncxNavPoint{
			ID:        fmt.Sprintf("navpoint-%d", i+1),
			PlayOrder: i + 1,
			Label:     ch.Title,
			Content:   ncxContent{Src: hrefFor(ch.Href)},
		})
	}

	return marshal(doc, ncxDoctype)
}
