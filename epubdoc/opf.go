package epubdoc

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"path"
	"strings"
	"time"
)

// OPF-related errors.
var (
	ErrNoOPF      = errors.New("epub: missing package document (OPF)")
	ErrInvalidOPF = errors.New("epub: invalid package document")
)

// opfPackage represents the OPF package document.
type opfPackage struct {
	XMLName  xml.Name    `xml:"package"`
	Version  string      `xml:"version,attr"`
	Metadata opfMetadata `xml:"metadata"`
	Manifest opfManifest `xml:"manifest"`
	Spine    opfSpine    `xml:"spine"`
}

type opfMetadata struct {
	Title       []dcElement `xml:"title"`
	Creator     []dcElement `xml:"creator"`
	Language    []dcElement `xml:"language"`
	Identifier  []dcElement `xml:"identifier"`
	Publisher   []dcElement `xml:"publisher"`
	Date        []dcElement `xml:"date"`
	Description []dcElement `xml:"description"`
	Subject     []dcElement `xml:"subject"`
	Rights      []dcElement `xml:"rights"`
	Meta        []opfMeta   `xml:"meta"`
}

type dcElement struct {
	ID      string `xml:"id,attr"`
	Event   string `xml:"event,attr"` // EPUB 2 opf:event on dc:date
	Content string `xml:",chardata"`
}

type opfMeta struct {
	Property string `xml:"property,attr"`
	Refines  string `xml:"refines,attr"`
	Name     string `xml:"name,attr"`    // EPUB 2 style
	Content  string `xml:"content,attr"` // EPUB 2 style
	Value    string `xml:",chardata"`    // EPUB 3 style
}

type opfManifest struct {
	Items []opfItem `xml:"item"`
}

type opfItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

type opfSpine struct {
	Toc      string       `xml:"toc,attr"` // NCX ID for EPUB 2
	ItemRefs []opfItemRef `xml:"itemref"`
}

type opfItemRef struct {
	IDRef  string `xml:"idref,attr"`
	Linear string `xml:"linear,attr"`
}

// parseOPF parses the OPF file and returns a Package struct along with the
// directory hrefs are relative to.
func parseOPF(zr *zip.Reader, opfPath string) (*Package, string, error) {
	data, err := readZipFile(zr, opfPath)
	if err == ErrMissingContent {
		return nil, "", ErrNoOPF
	}
	if err != nil {
		return nil, "", err
	}

	// Get base directory for resolving relative paths
	baseDir := path.Dir(opfPath)
	if baseDir == "." {
		baseDir = ""
	}

	var opf opfPackage
	if err := xml.Unmarshal(data, &opf); err != nil {
		return nil, "", ErrInvalidOPF
	}

	pkg := &Package{
		Version:  opf.Version,
		Metadata: convertMetadata(&opf.Metadata),
		Manifest: convertManifest(&opf.Manifest),
		Spine:    convertSpine(&opf.Spine),
		TocID:    opf.Spine.Toc,
	}

	return pkg, baseDir, nil
}

func convertMetadata(m *opfMetadata) Metadata {
	meta := Metadata{}

	meta.Title = first(m.Title)
	meta.Language = first(m.Language)
	meta.Identifier = first(m.Identifier)
	meta.Publisher = first(m.Publisher)
	meta.Description = first(m.Description)
	meta.Rights = first(m.Rights)

	for _, c := range m.Creator {
		if s := strings.TrimSpace(c.Content); s != "" {
			meta.Creator = append(meta.Creator, s)
		}
	}

	for _, s := range m.Subject {
		if subj := strings.TrimSpace(s.Content); subj != "" {
			meta.Subjects = append(meta.Subjects, subj)
		}
	}

	// Date - prefer the creation event, else take first
	for _, d := range m.Date {
		switch d.Event {
		case "", "creation", "publication":
			if meta.Date == "" {
				meta.Date = strings.TrimSpace(d.Content)
			}
		case "modification":
			if t, err := time.Parse(time.RFC3339, strings.TrimSpace(d.Content)); err == nil {
				meta.Modified = t
			}
		}
	}

	for _, mt := range m.Meta {
		switch {
		case mt.Property == "dcterms:modified":
			if t, err := time.Parse(time.RFC3339, strings.TrimSpace(mt.Value)); err == nil {
				meta.Modified = t
			}
		case mt.Name == "cover":
			meta.CoverID = mt.Content
		}
	}

	return meta
}

// first returns the trimmed content of the first element, if any.
func first(elems []dcElement) string {
	if len(elems) == 0 {
		return ""
	}
	return strings.TrimSpace(elems[0].Content)
}

func convertManifest(m *opfManifest) []ManifestItem {
	manifest := make([]ManifestItem, 0, len(m.Items))

	for _, item := range m.Items {
		mi := ManifestItem{
			ID:        item.ID,
			Href:      item.Href,
			MediaType: item.MediaType,
		}

		if item.Properties != "" {
			mi.Properties = strings.Fields(item.Properties)
		}

		manifest = append(manifest, mi)
	}

	return manifest
}

func convertSpine(s *opfSpine) []SpineItem {
	spine := make([]SpineItem, 0, len(s.ItemRefs))

	for _, ref := range s.ItemRefs {
		si := SpineItem{
			IDRef:  ref.IDRef,
			Linear: ref.Linear != "no", // Default is true
		}
		spine = append(spine, si)
	}

	return spine
}
