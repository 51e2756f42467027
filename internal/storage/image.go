package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"strings"

	"github.com/nfnt/resize"
)

var ErrNotImage = errors.New("not a supported image")

// NormalizeImage decodes a PNG or JPEG, shrinks it to maxWidth (keeping the
// aspect ratio, 0 disables resizing) and re-encodes it as JPEG.
func NormalizeImage(data []byte, maxWidth uint) ([]byte, string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	if maxWidth > 0 && uint(img.Bounds().Dx()) > maxWidth {
		img = resize.Resize(maxWidth, 0, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, "", fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

// DetectContentType sniffs the MIME type without parameters.
func DetectContentType(data []byte) string {
	ct := http.DetectContentType(data)
	if idx := strings.Index(ct, ";"); idx > 0 {
		ct = ct[:idx]
	}
	return ct
}
