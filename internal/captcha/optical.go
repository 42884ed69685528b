package captcha

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"

	"coursewatch/internal/components/assert"
	"coursewatch/internal/components/telemetry"
)

const report_optical_resolve = "optical.resolve"

// Recognizer reads text off a prepared black and white image.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

// Optical reads the rendered captcha image with a Recognizer after
// reducing it to pure black and white.
type Optical struct {
	recognizer Recognizer
	threshold  uint8
	tel        telemetry.API
}

func NewOptical(recognizer Recognizer, threshold int, tel telemetry.API) Optical {
	assert.NotNil(recognizer)
	assert.NotNil(tel)
	if threshold < 0 || threshold > 255 {
		panic(fmt.Sprintf("threshold must be within 0-255, got %d", threshold))
	}
	return Optical{
		recognizer: recognizer,
		threshold:  uint8(threshold),
		tel:        telemetry.NewScopedAPI("captcha", tel),
	}
}

// Binarize converts img to grayscale, pixels darker than threshold become
// black and everything else white.
func Binarize(img image.Image, threshold uint8) *image.Gray {
	bounds := img.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			if gray.Y < threshold {
				out.SetGray(x, y, color.Gray{Y: 0})
			} else {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}

func (o Optical) Resolve(ctx context.Context, img Image) (string, bool) {
	if img.Load == nil {
		o.tel.ReportWarning(report_optical_resolve, fmt.Errorf("no image loader"), img.Src)
		return "", false
	}
	raw, err := img.Load(ctx)
	if err != nil {
		o.tel.ReportBroken(report_optical_resolve, fmt.Errorf("load image: %w", err), img.Src)
		return "", false
	}
	decoded, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		o.tel.ReportBroken(report_optical_resolve, fmt.Errorf("decode image: %w", err), img.Src)
		return "", false
	}

	text, err := o.recognizer.Recognize(ctx, Binarize(decoded, o.threshold))
	if err != nil {
		o.tel.ReportBroken(report_optical_resolve, fmt.Errorf("recognize: %w", err), img.Src)
		return "", false
	}
	digits := keepDigits(text)
	if digits == "" {
		o.tel.ReportWarning(report_optical_resolve, fmt.Errorf("no digits recognized"), text)
		return "", false
	}
	if len(digits) != 5 {
		o.tel.ReportWarning(report_optical_resolve, fmt.Errorf("expected 5 digits, got %d", len(digits)), digits)
	}
	return digits, true
}
