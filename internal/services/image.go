package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/learnweave/backend/internal/clients/gcs"
	"github.com/learnweave/backend/internal/clients/genai"
	"github.com/learnweave/backend/internal/platform/logger"
)

// defaultCoverURL is served when both AI generation and local rendering fail.
const defaultCoverURL = "https://images.unsplash.com/photo-1456513080510-7bf3a84b82f8?w=800&q=80"

// ImageGenerator produces cover image URLs for courses and chapters. It
// never fails: AI generation, then a locally rendered placeholder, then a
// static default URL.
type ImageGenerator interface {
	CourseCover(ctx context.Context, title, description string) string
	ChapterCover(ctx context.Context, caption, summary, courseTitle string) string
}

type imageGenerator struct {
	log      *logger.Logger
	genai    genai.Client
	bucket   gcs.BucketService
	renderer *CoverRenderer

	fallbackURL string
}

// NewImageGenerator accepts nil collaborators: a missing genai client or
// bucket just shortens the fallback chain.
func NewImageGenerator(baseLog *logger.Logger, ai genai.Client, bucket gcs.BucketService, renderer *CoverRenderer) ImageGenerator {
	fallback := strings.TrimSpace(os.Getenv("DEFAULT_COURSE_IMAGE_URL"))
	if fallback == "" {
		fallback = defaultCoverURL
	}
	return &imageGenerator{
		log:         baseLog.With("service", "ImageGenerator"),
		genai:       ai,
		bucket:      bucket,
		renderer:    renderer,
		fallbackURL: fallback,
	}
}

func (ig *imageGenerator) CourseCover(ctx context.Context, title, description string) string {
	prompt := fmt.Sprintf(
		"Generate a professional, educational cover image for a course about: %s\n%s\n"+
			"Style: clean, modern, educational. Abstract or symbolic representation of the topic.",
		title, description,
	)
	return ig.coverURL(ctx, "course_cover", title, prompt)
}

func (ig *imageGenerator) ChapterCover(ctx context.Context, caption, summary, courseTitle string) string {
	prompt := fmt.Sprintf(
		"Generate a cover image for the chapter %q of a course about %q.\n%s\n"+
			"Style: clean, modern, educational, consistent with a course cover.",
		caption, courseTitle, summary,
	)
	return ig.coverURL(ctx, "chapter_cover", caption, prompt)
}

func (ig *imageGenerator) coverURL(ctx context.Context, kind, title, prompt string) string {
	if ig.genai != nil && ig.bucket != nil {
		img, err := ig.genai.GenerateImage(ctx, prompt)
		if err == nil {
			if url, upErr := ig.upload(ctx, kind, img.Bytes); upErr == nil {
				return url
			} else {
				ig.log.Warn("cover upload failed", "kind", kind, "error", upErr)
			}
		} else {
			ig.log.Warn("AI cover generation failed", "kind", kind, "error", err)
		}
	}

	if ig.renderer != nil && ig.bucket != nil {
		buf, err := ig.renderer.Render(title)
		if err == nil {
			if url, upErr := ig.upload(ctx, kind, buf.Bytes()); upErr == nil {
				return url
			} else {
				ig.log.Warn("rendered cover upload failed", "kind", kind, "error", upErr)
			}
		} else {
			ig.log.Warn("cover render failed", "kind", kind, "error", err)
		}
	}

	return ig.fallbackURL
}

func (ig *imageGenerator) upload(ctx context.Context, kind string, data []byte) (string, error) {
	key := fmt.Sprintf("%s/%s/%d.png", kind, uuid.New(), time.Now().UnixNano())
	if err := ig.bucket.Upload(ctx, key, bytes.NewReader(data)); err != nil {
		return "", err
	}
	return ig.bucket.PublicURL(key), nil
}
