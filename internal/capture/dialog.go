package capture

import (
	"context"
	"errors"

	"github.com/ncruces/zenity"
)

// DialogPicker opens the native file chooser restricted to images.
type DialogPicker struct {
	Title string
}

func (p DialogPicker) Pick(ctx context.Context) (Image, error) {
	title := p.Title
	if title == "" {
		title = "사진 선택"
	}

	path, err := zenity.SelectFile(
		zenity.Context(ctx),
		zenity.Title(title),
		zenity.FileFilters{
			{Name: "Images", Patterns: []string{"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.bmp"}},
		},
	)
	if errors.Is(err, zenity.ErrCanceled) {
		return Image{}, ErrCanceled
	}
	if err != nil {
		return Image{}, err
	}
	return Load(path)
}
