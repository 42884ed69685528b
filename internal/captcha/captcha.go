// Package captcha turns the login captcha image into the digits the form
// expects.
package captcha

import (
	"context"
	"strings"
	"unicode"
)

// Image identifies the captcha on the page. Load returns the rendered
// image bytes and may be nil when only the source is known.
type Image struct {
	Src  string
	Load func(ctx context.Context) ([]byte, error)
}

// Resolver returns the captcha answer, ok is false when it has none. It
// never guesses.
type Resolver interface {
	Resolve(ctx context.Context, img Image) (digits string, ok bool)
}

func keepDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			return r
		}
		return -1
	}, s)
}
