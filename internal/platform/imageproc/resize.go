package imageproc

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

const (
	// maxEdge bounds the longer image edge before OCR. Menu photos from
	// phones are far larger than the model needs.
	maxEdge = 1024

	jpegQuality = 85
)

// Downscale re-encodes the photo as JPEG with its longer edge bounded to
// maxEdge. Images already within bounds are still re-encoded so the OCR
// request always carries a predictable payload.
func Downscale(data []byte) ([]byte, string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("imageproc: decode: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxEdge || bounds.Dy() > maxEdge {
		img = imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, "", fmt.Errorf("imageproc: encode: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}
