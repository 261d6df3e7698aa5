package manifest

import (
	"encoding/xml"

	"github.com/tsawler/epubpack/mediatype"
)

const containerNamespace = "urn:oasis:names:tc:opendocument:xmlns:container"

// containerXML is the shape of META-INF/container.xml.
type containerXML struct {
	XMLName   xml.Name  `xml:"container"`
	Version   string    `xml:"version,attr"`
	Xmlns     string    `xml:"xmlns,attr"`
	Rootfiles rootfiles `xml:"rootfiles"`
}

type rootfiles struct {
	Rootfile []rootfile `xml:"rootfile"`
}

type rootfile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

// Container renders META-INF/container.xml pointing at the package document.
func Container() ([]byte, error) {
	return marshal(containerXML{
		Version: "1.0",
		Xmlns:   containerNamespace,
		Rootfiles: rootfiles{
			Rootfile: []rootfile{{
				FullPath:  PackagePath,
				MediaType: mediatype.OPF.String(),
			}},
		},
	}, "")
}
