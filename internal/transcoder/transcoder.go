package transcoder

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/disintegration/imaging"

	"picstore_backend/pkg/apperrors"
)

// Metadata describes a decoded image buffer.
type Metadata struct {
	Width  int
	Height int
	Format string // "jpeg", "png", "gif", ...
	Size   int64
}

// ThumbnailOptions control thumbnail derivation.
type ThumbnailOptions struct {
	Format              string // target encoding; source format when empty
	MaintainAspectRatio bool
}

// Transcoder performs stateless decode/resize/re-encode operations over
// byte buffers. It holds no configuration: format and quality are
// per-call parameters.
type Transcoder struct{}

func New() *Transcoder {
	return &Transcoder{}
}

// DecodeMetadata reads image dimensions and format without a full pixel
// decode. Corrupt or unsupported input yields a transcode error, never
// a panic.
func (t *Transcoder) DecodeMetadata(data []byte) (*Metadata, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.ErrTranscode(err)
	}
	return &Metadata{
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: format,
		Size:   int64(len(data)),
	}, nil
}

// Reencode decodes the buffer and encodes it in the given format at the
// given quality.
func (t *Transcoder) Reencode(data []byte, format string, quality int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.ErrTranscode(err)
	}
	return encode(img, format, quality)
}

// DeriveThumbnail produces a smaller rendition bounded by maxDim on the
// longest side. It fits inside the bounding box, never upscales past the
// source's own dimensions, and preserves aspect ratio unless disabled.
func (t *Transcoder) DeriveThumbnail(data []byte, maxDim, quality int, opts ThumbnailOptions) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.ErrTranscode(err)
	}

	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	var resized image.Image
	if opts.MaintainAspectRatio {
		// Fit scales down to the bounding box and never upscales.
		resized = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	} else {
		resized = imaging.Resize(img, min(maxDim, srcW), min(maxDim, srcH), imaging.Lanczos)
	}

	format := opts.Format
	if format == "" {
		meta, metaErr := t.DecodeMetadata(data)
		if metaErr != nil {
			return nil, metaErr
		}
		format = meta.Format
	}
	return encode(resized, format, quality)
}

// StripSensitiveMetadata bakes the stored EXIF orientation into the pixel
// data, then re-encodes. The standard encoders emit no EXIF block, so all
// tags including GPS are dropped while the visible orientation survives.
// PNG sources keep their alpha channel and get best-effort compression.
func (t *Transcoder) StripSensitiveMetadata(data []byte, quality int) ([]byte, error) {
	meta, err := t.DecodeMetadata(data)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, apperrors.ErrTranscode(err)
	}
	return encode(img, meta.Format, quality)
}

// OnDemandResize serves a transformed rendition. When no dimensions are
// requested and the target format matches the buffer's own format, the
// input is returned unchanged to skip the decode/encode cost.
func (t *Transcoder) OnDemandResize(data []byte, width, height int, format string, quality int) ([]byte, error) {
	meta, err := t.DecodeMetadata(data)
	if err != nil {
		return nil, err
	}

	if width == 0 && height == 0 && NormalizeFormat(format) == meta.Format {
		return data, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.ErrTranscode(err)
	}

	if width > 0 || height > 0 {
		// A zero dimension preserves the aspect ratio.
		img = imaging.Resize(img, width, height, imaging.Lanczos)
	}
	return encode(img, format, quality)
}

func encode(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch NormalizeFormat(format) {
	case "jpeg":
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return nil, apperrors.ErrTranscode(err)
		}
	case "png":
		if err := imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression)); err != nil {
			return nil, apperrors.ErrTranscode(err)
		}
	case "gif":
		if err := imaging.Encode(&buf, img, imaging.GIF); err != nil {
			return nil, apperrors.ErrTranscode(err)
		}
	default:
		return nil, apperrors.ErrTranscode(fmt.Errorf("unsupported target format: %s", format))
	}

	return buf.Bytes(), nil
}

// NormalizeFormat maps format aliases onto their canonical name.
func NormalizeFormat(format string) string {
	f := strings.ToLower(format)
	if f == "jpg" {
		return "jpeg"
	}
	return f
}

// ExtensionFor returns the file extension used for a canonical format.
func ExtensionFor(format string) string {
	switch NormalizeFormat(format) {
	case "jpeg":
		return "jpg"
	case "png":
		return "png"
	case "gif":
		return "gif"
	default:
		return NormalizeFormat(format)
	}
}

// MimeTypeFor returns the MIME type for a canonical format.
func MimeTypeFor(format string) string {
	return "image/" + NormalizeFormat(format)
}
