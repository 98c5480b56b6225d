// Package capture turns read-back framebuffer pixels into encoded images.
package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Format is an image encoding.
type Format string

// Supported formats.
const (
	PNG  Format = "png"
	BMP  Format = "bmp"
	TIFF Format = "tiff"
)

// FormatFromPath picks the format from a file extension. Unknown extensions are PNG.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bmp":
		return BMP
	case ".tif", ".tiff":
		return TIFF
	default:
		return PNG
	}
}

// FromPixels builds an image from tightly packed RGBA rows stored bottom row first,
// as glReadPixels returns them.
func FromPixels(pixels []byte, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid capture size %dx%d", width, height)
	}
	if len(pixels) != width*height*4 {
		return nil, fmt.Errorf("pixel data size mismatch: expected %d, got %d", width*height*4, len(pixels))
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rowSize := width * 4
	for y := 0; y < height; y++ {
		src := (height - 1 - y) * rowSize
		dst := y * img.Stride
		copy(img.Pix[dst:dst+rowSize], pixels[src:src+rowSize])
	}
	return img, nil
}

// Downscale resizes img by factor. Factors of 1 or more return img unchanged.
func Downscale(img image.Image, factor float64) image.Image {
	if factor <= 0 || factor >= 1 {
		return img
	}
	b := img.Bounds()
	w := max(uint(float64(b.Dx())*factor), 1)
	h := max(uint(float64(b.Dy())*factor), 1)
	return resize.Resize(w, h, img, resize.Bilinear)
}

// Encode writes img to w in format.
func Encode(w io.Writer, img image.Image, format Format) error {
	var err error
	switch format {
	case PNG, "":
		err = png.Encode(w, img)
	case BMP:
		err = bmp.Encode(w, img)
	case TIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("unsupported capture format %q", format)
	}
	if err != nil {
		return fmt.Errorf("encoding %s: %w", format, err)
	}
	return nil
}

// Config controls captured frames.
type Config struct {
	// Path is the fixed output file. Its extension selects the format.
	Path string
	// Scale downsizes captures when below 1.
	Scale float64
}

// Writer encodes and saves captured frames.
type Writer struct {
	path   string
	format Format
	scale  float64
}

// NewWriter creates a writer for cfg.
func NewWriter(cfg Config) *Writer {
	path := cfg.Path
	if path == "" {
		path = "frame.png"
	}
	return &Writer{
		path:   path,
		format: FormatFromPath(path),
		scale:  cfg.Scale,
	}
}

// Path returns the output file.
func (w *Writer) Path() string { return w.path }

// Format returns the encoding used for captures.
func (w *Writer) Format() Format { return w.format }

// Bytes encodes img, scaled by the configured factor.
func (w *Writer) Bytes(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, Downscale(img, w.scale), w.format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save encodes img and replaces the output file. The file is written next to its final
// name and renamed so readers never see a partial image.
func (w *Writer) Save(img image.Image) (string, error) {
	data, err := w.Bytes(img)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".capture-*")
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing %s: %w", w.path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("writing %s: %w", w.path, err)
	}
	if err := os.Rename(tmp.Name(), w.path); err != nil {
		return "", fmt.Errorf("saving %s: %w", w.path, err)
	}
	return w.path, nil
}
