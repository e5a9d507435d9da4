package services

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"image/color"
	"os"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/learnweave/backend/internal/platform/logger"
)

const (
	coverWidth  = 1280
	coverHeight = 720
)

// CoverRenderer draws a deterministic placeholder cover for a course or
// chapter: a title-derived background color with the title text on top. Used
// when AI image generation is unavailable or fails.
type CoverRenderer struct {
	log       *logger.Logger
	titleFace font.Face
	palette   []color.NRGBA
}

func NewCoverRenderer(baseLog *logger.Logger) (*CoverRenderer, error) {
	serviceLog := baseLog.With("service", "CoverRenderer")

	fontPath := strings.TrimSpace(os.Getenv("COVER_FONT"))
	if fontPath == "" {
		return nil, fmt.Errorf("env var COVER_FONT is empty")
	}
	serviceLog.Info("Loading cover font", "font", fontPath)

	face, err := loadFontFace(fontPath, 72)
	if err != nil {
		return nil, fmt.Errorf("could not load cover font: %w", err)
	}

	return &CoverRenderer{
		log:       serviceLog,
		titleFace: face,
		palette: []color.NRGBA{
			{R: 0x2B, G: 0x58, B: 0x76, A: 0xFF},
			{R: 0x4E, G: 0x34, B: 0x66, A: 0xFF},
			{R: 0x1F, G: 0x6E, B: 0x5C, A: 0xFF},
			{R: 0x7A, G: 0x3B, B: 0x2E, A: 0xFF},
			{R: 0x3D, G: 0x3D, B: 0x6B, A: 0xFF},
			{R: 0x5C, G: 0x4A, B: 0x1F, A: 0xFF},
		},
	}, nil
}

// Render produces a PNG cover image for the given title.
func (cr *CoverRenderer) Render(title string) (bytes.Buffer, error) {
	dc := gg.NewContext(coverWidth, coverHeight)

	base := cr.pickColor(title)
	dc.SetColor(base)
	dc.DrawRectangle(0, 0, coverWidth, coverHeight)
	dc.Fill()

	// darker band behind the text
	dc.SetColor(shade(base, 0.8))
	dc.DrawRectangle(0, coverHeight*0.55, coverWidth, coverHeight*0.45)
	dc.Fill()

	dc.SetFontFace(cr.titleFace)
	dc.SetColor(color.White)
	dc.DrawStringWrapped(
		strings.TrimSpace(title),
		coverWidth/2, coverHeight*0.52,
		0.5, 0,
		coverWidth*0.85,
		1.3,
		gg.AlignCenter,
	)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return buf, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf, nil
}

func (cr *CoverRenderer) pickColor(title string) color.NRGBA {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(title))))
	return cr.palette[int(h.Sum32())%len(cr.palette)]
}

func shade(c color.NRGBA, factor float64) color.NRGBA {
	return color.NRGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

func loadFontFace(fontPath string, size float64) (font.Face, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	face := truetype.NewFace(parsedFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	return face, nil
}
