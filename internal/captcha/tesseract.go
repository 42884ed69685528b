package captcha

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strings"
)

// Tesseract recognizes single-line digit captchas with the tesseract CLI.
type Tesseract struct {
	// Path is the tesseract executable, looked up in PATH when empty.
	Path string
}

func (t Tesseract) command() string {
	if t.Path == "" {
		return "tesseract"
	}
	return t.Path
}

// Available reports whether the tesseract binary can be found.
func (t Tesseract) Available() bool {
	_, err := exec.LookPath(t.command())
	return err == nil
}

func (t Tesseract) Recognize(ctx context.Context, img image.Image) (string, error) {
	var encoded bytes.Buffer
	err := png.Encode(&encoded, img)
	if err != nil {
		return "", err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(
		ctx,
		t.command(),
		"stdin", "stdout",
		"--psm", "7",
		"-c", "tessedit_char_whitelist=0123456789",
	)
	cmd.Stdin = &encoded
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err = cmd.Run()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}
