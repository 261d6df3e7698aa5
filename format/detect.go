// Package format detects EPUB containers by file name and by content.
package format

import (
	"archive/zip"
	"bytes"
	"io"
	"path/filepath"
	"strings"
)

// Format represents a recognized container format.
type Format int

const (
	// Unknown indicates an unrecognized format.
	Unknown Format = iota
	// EPUB indicates an EPUB container.
	EPUB
	// ZIP indicates a ZIP archive that is not an EPUB container.
	ZIP
)

const (
	mimetypeName    = "mimetype"
	mimetypeContent = "application/epub+zip"

	// Offsets inside the first local file header of the archive.
	nameLenOffset  = 26
	extraLenOffset = 28
	nameOffset     = 30
	contentOffset  = nameOffset + len(mimetypeName)
)

var zipMagic = []byte{0x50, 0x4B, 0x03, 0x04}

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case EPUB:
		return "EPUB"
	case ZIP:
		return "ZIP"
	default:
		return "Unknown"
	}
}

// Extension returns the typical file extension for the format.
func (f Format) Extension() string {
	switch f {
	case EPUB:
		return ".epub"
	case ZIP:
		return ".zip"
	default:
		return ""
	}
}

// Detect determines the format from the filename extension.
func Detect(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".epub":
		return EPUB
	case ".zip":
		return ZIP
	default:
		return Unknown
	}
}

// DetectFromMagic checks the leading bytes of a file the way EPUB readers do:
// the archive must start with an uncompressed entry named "mimetype" with no
// extra field, whose content "application/epub+zip" begins at offset 38.
// Other ZIP archives are reported as ZIP.
func DetectFromMagic(data []byte) Format {
	if len(data) < len(zipMagic) || !bytes.Equal(data[:len(zipMagic)], zipMagic) {
		return Unknown
	}

	if len(data) < contentOffset+len(mimetypeContent) {
		return ZIP
	}

	method := le16(data[8:])
	nameLen := le16(data[nameLenOffset:])
	extraLen := le16(data[extraLenOffset:])
	if method != zip.Store || int(nameLen) != len(mimetypeName) || extraLen != 0 {
		return ZIP
	}
	if string(data[nameOffset:contentOffset]) != mimetypeName {
		return ZIP
	}
	if string(data[contentOffset:contentOffset+len(mimetypeContent)]) != mimetypeContent {
		return ZIP
	}

	return EPUB
}

// DetectFromReader inspects the content to determine the format. Archives
// that fail the fixed-offset check are still reported as EPUB when they
// contain a mimetype entry with the EPUB media type anywhere.
func DetectFromReader(r io.ReaderAt, size int64) (Format, error) {
	magic := make([]byte, contentOffset+len(mimetypeContent))
	n, err := r.ReadAt(magic, 0)
	if err != nil && err != io.EOF {
		return Unknown, err
	}
	magic = magic[:n]

	switch DetectFromMagic(magic) {
	case EPUB:
		return EPUB, nil
	case Unknown:
		return Unknown, nil
	}

	return detectZIPFormat(r, size)
}

// detectZIPFormat looks for an EPUB mimetype entry in an arbitrary archive.
func detectZIPFormat(r io.ReaderAt, size int64) (Format, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return Unknown, err
	}

	for _, f := range zr.File {
		if f.Name != mimetypeName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return ZIP, nil
		}
		data := make([]byte, 256)
		n, _ := io.ReadFull(rc, data)
		rc.Close()
		if strings.TrimSpace(string(data[:n])) == mimetypeContent {
			return EPUB, nil
		}
	}

	return ZIP, nil
}

func le16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}
