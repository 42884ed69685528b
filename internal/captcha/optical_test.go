package captcha

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"coursewatch/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

type fakeRecognizer struct {
	text string
	err  error
	got  image.Image
}

func (f *fakeRecognizer) Recognize(_ context.Context, img image.Image) (string, error) {
	f.got = img
	return f.text, f.err
}

func gradient(t *testing.T) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 256, 1))
	for x := 0; x < 256; x++ {
		img.Set(x, 0, color.RGBA{R: uint8(x), G: uint8(x), B: uint8(x), A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func loader(data []byte) func(context.Context) ([]byte, error) {
	return func(context.Context) ([]byte, error) {
		return data, nil
	}
}

func TestBinarize(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 1))
	img.SetGray(0, 0, color.Gray{Y: 10})
	img.SetGray(1, 0, color.Gray{Y: 128})
	img.SetGray(2, 0, color.Gray{Y: 127})

	out := Binarize(img, 128)
	require.Equal(t, uint8(0), out.GrayAt(0, 0).Y)
	require.Equal(t, uint8(255), out.GrayAt(1, 0).Y)
	require.Equal(t, uint8(0), out.GrayAt(2, 0).Y)
}

func TestOpticalResolve(t *testing.T) {
	recognizer := &fakeRecognizer{text: " 4 3-9 7 1\n"}
	optical := NewOptical(recognizer, 128, telemetry.NewMemoryAPI())

	digits, ok := optical.Resolve(context.Background(), Image{
		Src:  "images/check/27.jpg",
		Load: loader(gradient(t)),
	})
	require.True(t, ok)
	require.Equal(t, "43971", digits)

	gray, isGray := recognizer.got.(*image.Gray)
	require.True(t, isGray)
	for x := 0; x < 256; x++ {
		y := gray.GrayAt(x, 0).Y
		require.True(t, y == 0 || y == 255)
	}
}

func TestOpticalFailures(t *testing.T) {
	cases := []struct {
		name       string
		img        Image
		recognizer *fakeRecognizer
	}{
		{
			name:       "no loader",
			img:        Image{Src: "images/check/1.jpg"},
			recognizer: &fakeRecognizer{text: "14687"},
		},
		{
			name: "load error",
			img: Image{Load: func(context.Context) ([]byte, error) {
				return nil, errors.New("canvas tainted")
			}},
			recognizer: &fakeRecognizer{text: "14687"},
		},
		{
			name:       "not an image",
			img:        Image{Load: loader([]byte("<html>"))},
			recognizer: &fakeRecognizer{text: "14687"},
		},
		{
			name:       "no digits",
			img:        Image{Load: loader(gradient(t))},
			recognizer: &fakeRecognizer{text: "~~"},
		},
		{
			name:       "recognizer error",
			img:        Image{Load: loader(gradient(t))},
			recognizer: &fakeRecognizer{err: errors.New("exit status 1")},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			optical := NewOptical(c.recognizer, 128, telemetry.NewMemoryAPI())
			digits, ok := optical.Resolve(context.Background(), c.img)
			require.False(t, ok)
			require.Empty(t, digits)
		})
	}
}

func TestTesseractBlank(t *testing.T) {
	tesseract := Tesseract{}
	if !tesseract.Available() {
		t.Skip("tesseract is not installed")
	}
	blank := image.NewGray(image.Rect(0, 0, 120, 40))
	for i := range blank.Pix {
		blank.Pix[i] = 255
	}
	text, err := tesseract.Recognize(context.Background(), blank)
	require.NoError(t, err)
	require.Empty(t, keepDigits(text))
}
