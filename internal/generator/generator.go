// Package generator renders image challenges for the verification flow.
package generator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/steambap/captcha"

	"github.com/GalaxyBotTeam/captcha-gate/internal/domain"
)

// charPreset omits glyphs that are hard to read once distorted (0/O, 1/I/l).
const charPreset = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKMNPQRSTUVWXYZ23456789"

const (
	imageWidth  = 280
	imageHeight = 90
)

var ErrEmptyAlphabet = errors.New("exclusion removes every candidate character")

// Service generates random image challenges.
type Service struct {
	width  int
	height int
}

// NewService returns a generator with the default image dimensions.
func NewService() *Service {
	return &Service{width: imageWidth, height: imageHeight}
}

// Generate renders a challenge whose answer has the given length and contains
// none of the characters in exclude. The answer text is drawn only from
// characters visible in the image.
func (s *Service) Generate(_ context.Context, length int, exclude string) (*domain.Challenge, error) {
	if length < 1 {
		return nil, fmt.Errorf("challenge length must be at least 1, got %d", length)
	}

	preset := filterPreset(charPreset, exclude)
	if preset == "" {
		return nil, ErrEmptyAlphabet
	}

	data, err := captcha.New(s.width, s.height, func(o *captcha.Options) {
		o.CharPreset = preset
		o.TextLength = length
		o.CurveNumber = 2
	})
	if err != nil {
		return nil, fmt.Errorf("render captcha: %w", err)
	}

	var buf bytes.Buffer
	if err := data.WriteImage(&buf); err != nil {
		return nil, fmt.Errorf("encode captcha image: %w", err)
	}

	return &domain.Challenge{Image: buf.Bytes(), Answer: data.Text}, nil
}

func filterPreset(preset, exclude string) string {
	if exclude == "" {
		return preset
	}
	var b strings.Builder
	for _, r := range preset {
		if !strings.ContainsRune(exclude, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
