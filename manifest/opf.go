package manifest

import (
	"encoding/xml"
	"time"

	"github.com/tsawler/epubpack/mediatype"
)

const (
	opfNamespace = "http://www.idpf.org/2007/opf"
	dcNamespace  = "http://purl.org/dc/elements/1.1/"

	bookIDRef = "BookId"
	ncxItemID = "ncx"
	navItemID = "toc"

	// dcterms:modified only accepts second precision in UTC.
	modifiedLayout = "2006-01-02T15:04:05Z"
)

// opfPackage is the shape of the OPF package document.
type opfPackage struct {
	XMLName          xml.Name    `xml:"package"`
	Xmlns            string      `xml:"xmlns,attr"`
	Version          string      `xml:"version,attr"`
	UniqueIdentifier string      `xml:"unique-identifier,attr"`
	Metadata         opfMetadata `xml:"metadata"`
	Manifest         opfManifest `xml:"manifest"`
	Spine            opfSpine    `xml:"spine"`
}

type opfMetadata struct {
	XmlnsDC     string       `xml:"xmlns:dc,attr"`
	XmlnsOPF    string       `xml:"xmlns:opf,attr,omitempty"`
	Title       string       `xml:"dc:title"`
	Language    string       `xml:"dc:language"`
	Identifier  dcIdentifier `xml:"dc:identifier"`
	Creator     *dcCreator   `xml:"dc:creator"`
	Publisher   string       `xml:"dc:publisher,omitempty"`
	Subject     string       `xml:"dc:subject,omitempty"`
	Description string       `xml:"dc:description,omitempty"`
	Dates       []dcDate     `xml:"dc:date"`
	Meta        []opfMeta    `xml:"meta"`
}

type dcIdentifier struct {
	ID    string `xml:"id,attr"`
	Value string `xml:",chardata"`
}

type dcCreator struct {
	Role  string `xml:"opf:role,attr,omitempty"`
	Value string `xml:",chardata"`
}

type dcDate struct {
	Event string `xml:"opf:event,attr,omitempty"`
	Value string `xml:",chardata"`
}

type opfMeta struct {
	Name     string `xml:"name,attr,omitempty"`
	Content  string `xml:"content,attr,omitempty"`
	Property string `xml:"property,attr,omitempty"`
	Value    string `xml:",chardata"`
}

type opfManifest struct {
	Items []opfItem `xml:"item"`
}

type opfItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr,omitempty"`
}

type opfSpine struct {
	Toc      string       `xml:"toc,attr"`
	ItemRefs []opfItemRef `xml:"itemref"`
}

type opfItemRef struct {
	IDRef string `xml:"idref,attr"`
}

// Package renders the OPF package document: Dublin Core metadata, one
// manifest item per content file and a spine listing the chapters in order.
func Package(b *Book) ([]byte, error) {
	pkg := opfPackage{
		Xmlns:            opfNamespace,
		Version:          b.Version.String(),
		UniqueIdentifier: bookIDRef,
		Metadata:         packageMetadata(b),
		Spine:            opfSpine{Toc: ncxItemID},
	}

	pkg.Manifest.Items = append(pkg.Manifest.Items, opfItem{
		ID:        ncxItemID,
		Href:      NCXName,
		MediaType: mediatype.NCX.String(),
	})
	if b.Version == EPUB3 {
		pkg.Manifest.Items = append(pkg.Manifest.Items, opfItem{
			ID:         navItemID,
			Href:       NavName,
			MediaType:  mediatype.XHTML.String(),
			Properties: "nav",
		})
	}

	for _, it := range b.Items {
		item := opfItem{
			ID:        it.ID,
			Href:      hrefFor(it.Href),
			MediaType: it.MediaType.String(),
		}
		if it.Cover && b.Version == EPUB3 {
			item.Properties = "cover-image"
		}
		pkg.Manifest.Items = append(pkg.Manifest.Items, item)
	}

	for _, ch := range b.Chapters() {
		pkg.Spine.ItemRefs = append(pkg.Spine.ItemRefs, opfItemRef{IDRef: ch.ID})
	}

	return marshal(pkg, "")
}

func packageMetadata(b *Book) opfMetadata {
	md := opfMetadata{
		XmlnsDC:     dcNamespace,
		Title:       b.Title,
		Language:    b.Language,
		Identifier:  dcIdentifier{ID: bookIDRef, Value: b.Identifier},
		Publisher:   b.Publisher,
		Subject:     b.Genre,
		Description: b.Description,
	}

	if b.Version == EPUB2 {
		md.XmlnsOPF = opfNamespace
	}

	if b.Author != "" {
		md.Creator = &dcCreator{Value: b.Author}
		if b.Version == EPUB2 {
			md.Creator.Role = "aut"
		}
	}

	switch b.Version {
	case EPUB3:
		md.Dates = []dcDate{{Value: formatTime(b.Created)}}
		md.Meta = append(md.Meta, opfMeta{
			Property: "dcterms:modified",
			Value:    b.Modified.UTC().Format(modifiedLayout),
		})
	default:
		md.Dates = []dcDate{
			{Event: "creation", Value: formatTime(b.Created)},
			{Event: "modification", Value: formatTime(b.Modified)},
		}
	}

	// Written for both versions. Only the first cover is named.
	for _, it := range b.Items {
		if it.Cover {
			md.Meta = append(md.Meta, opfMeta{Name: "cover", Content: it.ID})
			break
		}
	}

	return md
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
