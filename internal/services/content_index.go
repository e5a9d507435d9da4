package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/learnweave/backend/internal/clients/genai"
	"github.com/learnweave/backend/internal/clients/vectorstore"
	"github.com/learnweave/backend/internal/domain"
	"github.com/learnweave/backend/internal/platform/logger"
)

// ContentIndex makes the user's uploaded documents retrievable per course so
// chapter generation can quote from them.
type ContentIndex interface {
	IndexCourseDocuments(ctx context.Context, courseID uuid.UUID, docs []*domain.Document) error
	Retrieve(ctx context.Context, courseID uuid.UUID, topic domain.ChapterPlan) (string, error)
}

const (
	chunkSize      = 1500
	chunkOverlap   = 200
	retrieveTopK   = 5
	embedBatchSize = 32
)

type contentIndex struct {
	log      *logger.Logger
	embedder genai.Embedder
	store    vectorstore.Store
}

func NewContentIndex(baseLog *logger.Logger, embedder genai.Embedder, store vectorstore.Store) ContentIndex {
	return &contentIndex{
		log:      baseLog.With("service", "ContentIndex"),
		embedder: embedder,
		store:    store,
	}
}

func (ci *contentIndex) IndexCourseDocuments(ctx context.Context, courseID uuid.UUID, docs []*domain.Document) error {
	type chunk struct {
		docID   uuid.UUID
		docName string
		ordinal int
		text    string
	}

	var chunks []chunk
	for _, doc := range docs {
		if doc == nil || strings.TrimSpace(doc.Text) == "" {
			continue
		}
		for i, part := range splitText(doc.Text, chunkSize, chunkOverlap) {
			chunks = append(chunks, chunk{docID: doc.ID, docName: doc.Name, ordinal: i, text: part})
		}
	}
	if len(chunks) == 0 {
		ci.log.Info("no document text to index", "course_id", courseID)
		return nil
	}

	ns := courseID.String()

	// Embed and upsert batch by batch; batches run concurrently but bounded
	// so one large upload doesn't exhaust the embedding quota at once.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.text
			}
			vecs, err := ci.embedder.Embed(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed batch: %w", err)
			}

			vectors := make([]vectorstore.Vector, len(batch))
			for i, c := range batch {
				vectors[i] = vectorstore.Vector{
					ID:     fmt.Sprintf("%s:%d", c.docID, c.ordinal),
					Values: vecs[i],
					Metadata: map[string]any{
						"document_id": c.docID.String(),
						"document":    c.docName,
						"text":        c.text,
					},
				}
			}
			if err := ci.store.Upsert(gctx, ns, vectors); err != nil {
				return fmt.Errorf("upsert batch: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	ci.log.Info("indexed course documents", "course_id", courseID, "chunks", len(chunks))
	return nil
}

func (ci *contentIndex) Retrieve(ctx context.Context, courseID uuid.UUID, topic domain.ChapterPlan) (string, error) {
	query := topic.Caption
	if len(topic.Content) > 0 {
		query += "\n" + strings.Join(topic.Content, "\n")
	}

	vecs, err := ci.embedder.Embed(ctx, []string{query})
	if err != nil {
		return "", fmt.Errorf("embed topic: %w", err)
	}

	matches, err := ci.store.Query(ctx, courseID.String(), vecs[0], retrieveTopK, nil)
	if err != nil {
		return "", fmt.Errorf("query index: %w", err)
	}

	var b strings.Builder
	for _, m := range matches {
		text, _ := m.Metadata["text"].(string)
		if strings.TrimSpace(text) == "" {
			continue
		}
		if name, _ := m.Metadata["document"].(string); name != "" {
			fmt.Fprintf(&b, "[%s]\n", name)
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String()), nil
}

// splitText cuts text into overlapping chunks, preferring to break at a
// whitespace near the boundary.
func splitText(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if size <= 0 {
		return []string{text}
	}
	if overlap >= size {
		overlap = size / 4
	}

	var out []string
	for start := 0; start < len(text); {
		end := start + size
		if end >= len(text) {
			out = append(out, strings.TrimSpace(text[start:]))
			break
		}
		cut := end
		if i := strings.LastIndexAny(text[start:end], " \t\n"); i > size/2 {
			cut = start + i
		}
		out = append(out, strings.TrimSpace(text[start:cut]))
		start = cut - overlap
		if start < 0 {
			start = 0
		}
	}
	return out
}
