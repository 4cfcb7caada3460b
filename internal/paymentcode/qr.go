package paymentcode

import (
	"bytes"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

// DefaultQRSize is the pixel edge of the generated QR image.
const DefaultQRSize = 300

// EncodeQR renders the payload into a PNG QR code of size x size pixels.
// Error correction level M matches what bank scanners expect.
func EncodeQR(payload string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultQRSize
	}

	code, err := qr.Encode(payload, qr.M, qr.Auto)
	if err != nil {
		return nil, err
	}

	code, err = barcode.Scale(code, size, size)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, code); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
