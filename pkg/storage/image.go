package storage

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// FitImage downscales an encoded image so neither side exceeds maxDim while
// keeping its format. Inputs that are already small enough, or whose format
// the decoder does not know (webp, svg), are returned unchanged with ok=false.
func FitImage(data []byte, maxDim int) (out []byte, contentType string, ok bool, err error) {
	if maxDim <= 0 {
		return data, "", false, nil
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return data, "", false, nil
	}
	if cfg.Width <= maxDim && cfg.Height <= maxDim {
		return data, "", false, nil
	}

	target, err := imaging.FormatFromExtension(format)
	if err != nil {
		return data, "", false, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", false, fmt.Errorf("decode image: %w", err)
	}
	resized := imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)

	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, resized, target, imaging.JPEGQuality(85)); err != nil {
		return nil, "", false, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), "image/" + format, true, nil
}
