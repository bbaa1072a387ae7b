package camera

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"plant-monitor/internal/domain/entity"
	"plant-monitor/internal/domain/port"
)

// DefaultFeedKey ключ снимка ESP32-CAM внутри узла
const DefaultFeedKey = "ESP32CAM"

// ImageSource читает base64-снимок по пути {node}/{feedKey}
type ImageSource struct {
	store   port.Store
	feedKey string
}

// NewImageSource создаёт источник снимков
func NewImageSource(store port.Store, feedKey string) *ImageSource {
	if feedKey == "" {
		feedKey = DefaultFeedKey
	}
	return &ImageSource{store: store, feedKey: feedKey}
}

// Fetch возвращает последний снимок узла
func (s *ImageSource) Fetch(ctx context.Context, sensorNode string) (image.Image, error) {
	path := sensorNode + "/" + s.feedKey

	var encoded string
	if err := s.store.Get(ctx, path, &encoded); err != nil {
		return nil, errors.Wrapf(entity.ErrImageUnavailable, "read %s: %v", path, err)
	}
	if encoded == "" {
		return nil, errors.Wrapf(entity.ErrImageUnavailable, "no snapshot at %s", path)
	}

	img, err := DecodeSnapshot(encoded)
	if err != nil {
		return nil, errors.Wrapf(entity.ErrImageUnavailable, "%s: %v", path, err)
	}
	return img, nil
}

// DecodeSnapshot декодирует base64 (с префиксом data URI или без) в непрозрачное NRGBA-изображение
func DecodeSnapshot(encoded string) (*image.NRGBA, error) {
	payload := strings.TrimSpace(encoded)
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 {
			return nil, errors.New("data uri without payload")
		}
		payload = payload[comma+1:]
	}
	payload = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, payload)

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, errors.Wrap(err, "decode base64")
		}
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(err, "decode image")
	}
	return toRGB(img), nil
}

// toRGB отбрасывает альфа-канал, как convert("RGB")
func toRGB(img image.Image) *image.NRGBA {
	out := imaging.Clone(img)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 0xff
	}
	return out
}

var _ port.ImageSource = (*ImageSource)(nil)
