//go:build onnx

package onnx

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/Strob0t/CogniChat/internal/adapter/embedder"
)

var (
	envOnce sync.Once
	envErr  error
)

// Embedder runs all-MiniLM-L6-v2 with mean pooling over the token states.
type Embedder struct {
	session    *ort.DynamicAdvancedSession
	tokenizer  *Tokenizer
	dimensions int
	maxTokens  int
}

// New loads the tokenizer and model and initializes the ONNX runtime once
// per process.
func New(cfg Config) (*Embedder, error) {
	cfg.defaults()
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("onnx embedder: model path is required")
	}

	envOnce.Do(func() {
		if cfg.LibraryPath != "" {
			ort.SetSharedLibraryPath(cfg.LibraryPath)
		}
		envErr = ort.InitializeEnvironment()
	})
	if envErr != nil {
		return nil, fmt.Errorf("onnx runtime init: %w", envErr)
	}

	tok, err := LoadTokenizer(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("onnx embedder: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("onnx session: %w", err)
	}

	slog.Info("onnx embedder ready", "model", cfg.ModelPath, "dimensions", cfg.Dimensions)
	return &Embedder{
		session:    session,
		tokenizer:  tok,
		dimensions: cfg.Dimensions,
		maxTokens:  cfg.MaxTokens,
	}, nil
}

// Embed tokenizes text, runs the model and mean-pools the hidden states
// into a unit vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids := e.tokenizer.Encode(text, e.maxTokens)
	n := int64(len(ids))
	mask := make([]int64, n)
	types := make([]int64, n)
	for i := range mask {
		mask[i] = 1
	}

	shape := ort.NewShape(1, n)
	idsT, err := ort.NewTensor(shape, ids)
	if err != nil {
		return nil, fmt.Errorf("input_ids tensor: %w", err)
	}
	defer idsT.Destroy()
	maskT, err := ort.NewTensor(shape, mask)
	if err != nil {
		return nil, fmt.Errorf("attention_mask tensor: %w", err)
	}
	defer maskT.Destroy()
	typesT, err := ort.NewTensor(shape, types)
	if err != nil {
		return nil, fmt.Errorf("token_type_ids tensor: %w", err)
	}
	defer typesT.Destroy()

	outputs := []ort.Value{nil}
	if err := e.session.Run([]ort.Value{idsT, maskT, typesT}, outputs); err != nil {
		return nil, fmt.Errorf("onnx inference: %w", err)
	}
	defer func() {
		if outputs[0] != nil {
			outputs[0].Destroy()
		}
	}()

	out, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("onnx inference: unexpected output type %T", outputs[0])
	}
	oshape := out.GetShape()
	if len(oshape) != 3 || oshape[0] != 1 || oshape[2] != int64(e.dimensions) {
		return nil, fmt.Errorf("onnx inference: unexpected output shape %v", oshape)
	}

	data := out.GetData()
	vec := make([]float32, e.dimensions)
	for tok := 0; tok < int(oshape[1]); tok++ {
		row := data[tok*e.dimensions : (tok+1)*e.dimensions]
		for j, v := range row {
			vec[j] += v
		}
	}
	for j := range vec {
		vec[j] /= float32(oshape[1])
	}
	return embedder.Normalize(vec), nil
}

// Dimensions returns the embedding vector size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// Close releases the ONNX session.
func (e *Embedder) Close() error {
	return e.session.Destroy()
}
