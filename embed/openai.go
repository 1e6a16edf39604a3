package embed

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures an OpenAI-compatible embeddings endpoint.
type OpenAIConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// OpenAI embeds images through an OpenAI-compatible /embeddings endpoint.
// The image is sent as a base64 data URI, which multimodal embedding servers
// accept as input.
type OpenAI struct {
	client  *openai.Client
	model   string
	dims    int
	timeout time.Duration
}

// NewOpenAI creates a remote provider.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.Model == "" {
		return nil, pkgerrors.New("embed: openai provider requires a model")
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAI{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		dims:    cfg.Dimensions,
		timeout: cfg.Timeout,
	}, nil
}

// ID implements Provider.
func (o *OpenAI) ID() string { return "openai:" + o.model }

// Embed implements Provider.
func (o *OpenAI) Embed(ctx context.Context, data []byte) ([]float32, error) {
	if len(data) == 0 {
		return nil, pkgerrors.Wrap(ErrEmbedding, "empty image")
	}
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	req := openai.EmbeddingRequest{
		Input:      []string{dataURI(data)},
		Model:      openai.EmbeddingModel(o.model),
		Dimensions: o.dims,
	}
	resp, err := o.client.CreateEmbeddings(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, pkgerrors.Wrapf(ErrEmbedding, "create embeddings: %v", ctx.Err())
		}
		return nil, pkgerrors.Wrapf(ErrEmbedding, "create embeddings: %v", err)
	}
	if len(resp.Data) == 0 {
		return nil, pkgerrors.Wrap(ErrEmbedding, "empty embedding response")
	}
	return unit(resp.Data[0].Embedding)
}

func dataURI(data []byte) string {
	return "data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

var _ Provider = (*OpenAI)(nil)
