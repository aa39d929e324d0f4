// Package capture produces image submissions: a file on disk or one chosen
// through the desktop file dialog.
package capture

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const MaxImage = 16 << 20

var (
	ErrCanceled = errors.New("image selection canceled")
	ErrNotImage = errors.New("not an image")
)

// Image is one captured photo. Preview is a data URL suitable for showing
// the photo next to the classification.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
	Preview     string
}

func (img Image) Empty() bool { return len(img.Data) == 0 }

// Picker asks the user for an image. It returns ErrCanceled when the user
// backs out.
type Picker interface {
	Pick(ctx context.Context) (Image, error)
}

func FromBytes(name string, data []byte) (Image, error) {
	ct := http.DetectContentType(data)
	if !strings.HasPrefix(ct, "image/") {
		return Image{}, fmt.Errorf("%w: %s (%s)", ErrNotImage, name, ct)
	}
	return Image{
		Name:        name,
		ContentType: ct,
		Data:        data,
		Preview:     "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(data),
	}, nil
}

func Load(path string) (Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return Image{}, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxImage+1))
	if err != nil {
		return Image{}, fmt.Errorf("read image: %w", err)
	}
	if len(data) > MaxImage {
		return Image{}, fmt.Errorf("image %s exceeds %d bytes", path, MaxImage)
	}
	return FromBytes(filepath.Base(path), data)
}
