package embedding

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var _ Embedder = (*OpenAI)(nil)

// EmbeddingsService is the slice of the OpenAI client used here. Tests
// substitute a fake.
type EmbeddingsService interface {
	New(ctx context.Context, params openai.EmbeddingNewParams, opts ...option.RequestOption) (*openai.CreateEmbeddingResponse, error)
}

// OpenAI embeds takeaway documents through the OpenAI embeddings endpoint.
type OpenAI struct {
	embeddings EmbeddingsService
	model      openai.EmbeddingModel
	dimensions int
}

// NewOpenAI returns an embedder for model. dimensions of 0 keeps the
// model's native vector size.
func NewOpenAI(apiKey, model string, dimensions int) *OpenAI {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAI{
		embeddings: client.Embeddings,
		model:      openai.EmbeddingModel(model),
		dimensions: dimensions,
	}
}

func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	data, err := o.create(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("openai embed: no data returned")
	}
	return toFloat32(data[0].Embedding), nil
}

// EmbedBatch embeds texts in one request. The result is aligned with
// texts by the index the API reports for each vector.
func (o *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	data, err := o.create(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(data) != len(texts) {
		return nil, fmt.Errorf("openai embed: expected %d embeddings, got %d", len(texts), len(data))
	}

	out := make([][]float32, len(texts))
	for _, d := range data {
		i := int(d.Index)
		if i < 0 || i >= len(out) || out[i] != nil {
			return nil, fmt.Errorf("openai embed: unexpected index %d", d.Index)
		}
		out[i] = toFloat32(d.Embedding)
	}
	return out, nil
}

func (o *OpenAI) ModelName() string {
	return string(o.model)
}

func (o *OpenAI) create(ctx context.Context, texts []string) ([]openai.Embedding, error) {
	p := openai.EmbeddingNewParams{
		Input: openai.F[openai.EmbeddingNewParamsInputUnion](
			openai.EmbeddingNewParamsInputArrayOfStrings(texts),
		),
		Model: openai.F(o.model),
	}
	if o.dimensions > 0 {
		p.Dimensions = openai.F(int64(o.dimensions))
	}

	resp, err := o.embeddings.New(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	return resp.Data, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
