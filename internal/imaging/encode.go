package imaging

import (
	"bytes"
	"image"
	"image/jpeg"
)

// DefaultJPEGQuality is used when sending images to caption backends.
const DefaultJPEGQuality = 90

// EncodeJPEG encodes img for transport.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
