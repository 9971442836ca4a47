package overlay

import (
	"context"
	"image"
)

// ThumbnailSource provides the map thumbnail pasted next to the panel.
// Implementations make a single attempt per call.
type ThumbnailSource interface {
	Thumbnail(ctx context.Context) (image.Image, error)
}

// ThumbnailFunc adapts a function to ThumbnailSource
type ThumbnailFunc func(ctx context.Context) (image.Image, error)

// Thumbnail calls f(ctx)
func (f ThumbnailFunc) Thumbnail(ctx context.Context) (image.Image, error) {
	return f(ctx)
}

// StaticThumbnail always returns the same image
func StaticThumbnail(img image.Image) ThumbnailSource {
	return ThumbnailFunc(func(context.Context) (image.Image, error) {
		return img, nil
	})
}
