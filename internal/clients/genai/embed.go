package genai

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Embedder produces dense vectors for retrieval. The runtime client also
// implements it so one credential serves both concerns.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (c *client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}

	model := strings.TrimSpace(os.Getenv("GENAI_EMBED_MODEL"))
	if model == "" {
		model = "text-embedding-004"
	}

	clean := make([]string, len(inputs))
	for i := range inputs {
		s := strings.TrimSpace(inputs[i])
		if s == "" {
			s = " "
		}
		clean[i] = s
	}

	var resp embeddingsResponse
	if err := c.do(ctx, "POST", "/v1/embeddings", embeddingsRequest{Model: model, Input: clean}, &resp); err != nil {
		return nil, err
	}

	out := make([][]float32, len(clean))
	for _, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			vec[i] = float32(f)
		}
		if d.Index >= 0 && d.Index < len(out) {
			out[d.Index] = vec
		}
	}
	for i := range out {
		if len(out[i]) == 0 {
			return nil, fmt.Errorf("genai embeddings missing index %d: requested=%d returned=%d model=%s",
				i, len(clean), len(resp.Data), model)
		}
	}
	return out, nil
}
