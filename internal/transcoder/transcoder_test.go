package transcoder

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"picstore_backend/pkg/apperrors"
)

func makeJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func makePNGWithAlpha(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 30, B: 30, A: uint8((x + y) % 256)})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeMetadata(t *testing.T) {
	tc := New()

	meta, err := tc.DecodeMetadata(makeJPEG(t, 640, 480))
	require.NoError(t, err)
	assert.Equal(t, 640, meta.Width)
	assert.Equal(t, 480, meta.Height)
	assert.Equal(t, "jpeg", meta.Format)
	assert.Greater(t, meta.Size, int64(0))

	meta, err = tc.DecodeMetadata(makePNGWithAlpha(t, 32, 16))
	require.NoError(t, err)
	assert.Equal(t, "png", meta.Format)
}

func TestDecodeMetadataRejectsGarbage(t *testing.T) {
	tc := New()

	_, err := tc.DecodeMetadata([]byte("this is not an image"))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTranscodeFailed))

	_, err = tc.DecodeMetadata(nil)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTranscodeFailed))
}

func TestDeriveThumbnailFitsInsideBox(t *testing.T) {
	tc := New()

	thumb, err := tc.DeriveThumbnail(makeJPEG(t, 1920, 1080), 800, 80, ThumbnailOptions{
		Format:              "jpeg",
		MaintainAspectRatio: true,
	})
	require.NoError(t, err)

	meta, err := tc.DecodeMetadata(thumb)
	require.NoError(t, err)
	assert.Equal(t, 800, meta.Width)
	assert.Equal(t, 450, meta.Height)
}

func TestDeriveThumbnailNeverUpscales(t *testing.T) {
	tc := New()
	src := makeJPEG(t, 100, 50)

	for _, maintainAspect := range []bool{true, false} {
		thumb, err := tc.DeriveThumbnail(src, 800, 80, ThumbnailOptions{
			Format:              "jpeg",
			MaintainAspectRatio: maintainAspect,
		})
		require.NoError(t, err)

		meta, err := tc.DecodeMetadata(thumb)
		require.NoError(t, err)
		assert.LessOrEqual(t, meta.Width, 100)
		assert.LessOrEqual(t, meta.Height, 50)
	}
}

func TestOnDemandResizePassthrough(t *testing.T) {
	tc := New()
	src := makeJPEG(t, 320, 240)

	// No dimensions and matching format: the input comes back untouched.
	out, err := tc.OnDemandResize(src, 0, 0, "jpeg", 80)
	require.NoError(t, err)
	assert.Equal(t, src, out)

	// "jpg" normalizes to "jpeg" for the comparison.
	out, err = tc.OnDemandResize(src, 0, 0, "jpg", 80)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestOnDemandResizeProducesRequestedWidth(t *testing.T) {
	tc := New()
	src := makeJPEG(t, 800, 400)

	out, err := tc.OnDemandResize(src, 100, 0, "jpeg", 80)
	require.NoError(t, err)
	assert.NotEqual(t, src, out)

	meta, err := tc.DecodeMetadata(out)
	require.NoError(t, err)
	assert.Equal(t, 100, meta.Width)
	assert.Equal(t, 50, meta.Height)
}

func TestOnDemandResizeFormatConversion(t *testing.T) {
	tc := New()
	src := makeJPEG(t, 64, 64)

	out, err := tc.OnDemandResize(src, 0, 0, "png", 80)
	require.NoError(t, err)

	meta, err := tc.DecodeMetadata(out)
	require.NoError(t, err)
	assert.Equal(t, "png", meta.Format)
}

func TestStripSensitiveMetadataKeepsFormatAndAlpha(t *testing.T) {
	tc := New()

	out, err := tc.StripSensitiveMetadata(makePNGWithAlpha(t, 48, 48), 85)
	require.NoError(t, err)

	meta, err := tc.DecodeMetadata(out)
	require.NoError(t, err)
	assert.Equal(t, "png", meta.Format)
	assert.Equal(t, 48, meta.Width)

	out, err = tc.StripSensitiveMetadata(makeJPEG(t, 48, 24), 85)
	require.NoError(t, err)

	meta, err = tc.DecodeMetadata(out)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", meta.Format)
	assert.Equal(t, 48, meta.Width)
	assert.Equal(t, 24, meta.Height)
}

func TestReencodeChangesFormat(t *testing.T) {
	tc := New()

	out, err := tc.Reencode(makePNGWithAlpha(t, 20, 20), "jpeg", 90)
	require.NoError(t, err)

	meta, err := tc.DecodeMetadata(out)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", meta.Format)
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "jpg", ExtensionFor("jpeg"))
	assert.Equal(t, "jpg", ExtensionFor("jpg"))
	assert.Equal(t, "png", ExtensionFor("png"))
	assert.Equal(t, "image/jpeg", MimeTypeFor("jpg"))
	assert.Equal(t, "image/png", MimeTypeFor("png"))
}
