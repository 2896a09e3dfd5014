package azureface

import (
	"bytes"
	"fmt"
	"image"

	// The validator accepts exactly the formats the remote API accepts.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"

	// Registered so rejected formats can be named instead of reported as
	// undecodable.
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	log "github.com/sirupsen/logrus"
)

// MaxImageSize is the largest image payload the remote API accepts (6 MiB).
const MaxImageSize = 6 * 1024 * 1024

// supportedFormats lists the decoder names of the accepted image formats.
var supportedFormats = map[string]bool{
	"jpeg": true,
	"png":  true,
	"bmp":  true,
	"gif":  true,
}

// ValidateImage checks an image payload before it is sent to the remote API.
// Oversized payloads are rejected without a decode attempt; everything else
// must decode as one of the supported formats. The check is pure and
// performs no I/O.
func ValidateImage(data []byte) error {
	if len(data) > MaxImageSize {
		return newError(KindInvalidImage, 0,
			fmt.Sprintf("Image size exceeds maximum of %.1fMB", float64(MaxImageSize)/(1024*1024)))
	}

	_, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		log.Debugf("Image validation failed: %v", err)
		return newError(KindInvalidImage, 0, "Invalid image format or corrupted image")
	}

	if !supportedFormats[format] {
		return newError(KindInvalidImage, 0,
			fmt.Sprintf("Unsupported image format: %s. Supported formats: JPEG, PNG, BMP, GIF", format))
	}

	return nil
}
