// Package icon converts a source image into the platform icon containers:
// ICO for Windows executables and ICNS for macOS bundles.
package icon

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/jackmordaunt/icns/v3"
	"github.com/tc-hib/winres"

	"github.com/aebs/aebs/internal/builderr"
)

// ICOSizes are the square sizes embedded in generated ICO files.
var ICOSizes = []int{16, 24, 32, 48, 64, 128, 256}

// Converter writes icon containers from a source image. The zero value is
// ready to use.
type Converter struct{}

// Load decodes the image at path (PNG or JPEG).
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, builderr.WithPath(builderr.ErrIconConversion, "open icon", path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, builderr.WithPath(builderr.ErrIconConversion, "decode icon", path, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, builderr.WithPath(builderr.ErrIconConversion, "decode icon", path, errors.New("image is empty"))
	}
	return img, nil
}

// ICO builds a multi-resolution Windows icon from img.
func (Converter) ICO(img image.Image) (*winres.Icon, error) {
	ico, err := winres.NewIconFromResizedImage(img, ICOSizes)
	if err != nil {
		return nil, builderr.New(builderr.ErrIconConversion, "convert to ico", err)
	}
	return ico, nil
}

// WriteICO converts src to an ICO file at dest.
func (c Converter) WriteICO(src, dest string) error {
	img, err := Load(src)
	if err != nil {
		return err
	}
	ico, err := c.ICO(img)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := ico.SaveICO(&buf); err != nil {
		return builderr.WithPath(builderr.ErrIconConversion, "encode ico", dest, err)
	}
	return writeNonEmpty(dest, buf.Bytes())
}

// WriteICNS converts src to an ICNS file at dest.
func (Converter) WriteICNS(src, dest string) error {
	img, err := Load(src)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := icns.Encode(&buf, img); err != nil {
		return builderr.WithPath(builderr.ErrIconConversion, "encode icns", dest, err)
	}
	return writeNonEmpty(dest, buf.Bytes())
}

// ReadICO loads an ICO file written by WriteICO.
func ReadICO(path string) (*winres.Icon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ico, err := winres.LoadICO(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return ico, nil
}

func writeNonEmpty(dest string, data []byte) error {
	if len(data) == 0 {
		return builderr.WithPath(builderr.ErrIconConversion, "write icon", dest, errors.New("converter produced no data"))
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return builderr.WithPath(builderr.ErrIconConversion, "write icon", dest, err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return builderr.WithPath(builderr.ErrIconConversion, "write icon", dest, err)
	}
	return nil
}
