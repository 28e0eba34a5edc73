// Package qr renders ticket codes as PNG images for on-screen scanning.
package qr

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

const defaultSize = 256

// PNG encodes content as a QR code image. size is the edge length in pixels;
// non-positive values fall back to the default.
func PNG(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = defaultSize
	}
	b, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("qr.PNG:%w", err)
	}
	return b, nil
}
