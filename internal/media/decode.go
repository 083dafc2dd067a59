package media

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Metadata is the subset of embedded image metadata the analyzers inspect
type Metadata struct {
	Format   string
	Software string
	Make     string
	Model    string
}

// FileDecoder reads images from the local filesystem
type FileDecoder struct{}

// DecodeImage decodes the image at path along with its EXIF metadata.
// Missing or unreadable EXIF is not an error.
func (FileDecoder) DecodeImage(path string) (image.Image, Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("failed to decode image: %w", err)
	}

	meta := Metadata{Format: format}
	if _, err := f.Seek(0, io.SeekStart); err == nil {
		readExif(f, &meta)
	}

	return img, meta, nil
}

func readExif(r io.Reader, meta *Metadata) {
	x, err := exif.Decode(r)
	if err != nil {
		return
	}
	meta.Software = exifString(x, exif.Software)
	meta.Make = exifString(x, exif.Make)
	meta.Model = exifString(x, exif.Model)
}

func exifString(x *exif.Exif, field exif.FieldName) string {
	tag, err := x.Get(field)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.Trim(s, "\x00"))
}

// DefaultEditingSignatures are substrings of EXIF Software values written by editing tools
var DefaultEditingSignatures = []string{
	"photoshop",
	"gimp",
	"lightroom",
	"snapseed",
	"picsart",
	"facetune",
	"pixelmator",
	"affinity",
}

// EditingSignature returns the matched signature if software names a known editing tool
func EditingSignature(software string, signatures []string) (string, bool) {
	s := strings.ToLower(software)
	if s == "" {
		return "", false
	}
	for _, sig := range signatures {
		if sig != "" && strings.Contains(s, strings.ToLower(sig)) {
			return sig, true
		}
	}
	return "", false
}
