package llm

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// DefaultMaxImageBytes leaves headroom for the base64 expansion of a 5 MB
// transport limit.
const DefaultMaxImageBytes = 4 * 1024 * 1024

var recompressQualities = []int{85, 75, 65, 50}

const downscaleBox = 1280

// FitImage returns data unchanged when it is within maxBytes. Otherwise it
// re-encodes as JPEG at decreasing quality and, if that is not enough,
// downscales to fit a 1280px box.
func FitImage(data []byte, maxBytes int) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	if len(data) <= maxBytes {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}

	for _, q := range recompressQualities {
		out, err := encodeJPEG(img, q)
		if err != nil {
			return nil, err
		}
		if len(out) <= maxBytes {
			return out, nil
		}
	}

	small := downscale(img, downscaleBox)
	for _, q := range []int{75, 50, 30} {
		out, err := encodeJPEG(small, q)
		if err != nil {
			return nil, err
		}
		if len(out) <= maxBytes {
			return out, nil
		}
	}
	return nil, fmt.Errorf("screenshot still exceeds %d bytes after downscaling", maxBytes)
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// downscale fits img into a box x box square, keeping the aspect ratio.
func downscale(img image.Image, box int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= box && h <= box {
		return img
	}
	if w >= h {
		h = h * box / w
		w = box
	} else {
		w = w * box / h
		h = box
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
