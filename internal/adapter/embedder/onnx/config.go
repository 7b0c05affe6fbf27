// Package onnx computes all-MiniLM-L6-v2 sentence embeddings locally with
// ONNX Runtime. The runtime binding is only compiled with the "onnx" build
// tag; without it New reports that support is missing.
package onnx

import "errors"

// ErrUnavailable is returned when the binary was built without ONNX support.
var ErrUnavailable = errors.New("onnx embedder: binary built without the onnx tag")

// Config configures the ONNX embedder.
type Config struct {
	ModelPath     string // model.onnx
	TokenizerPath string // tokenizer.json with a WordPiece vocabulary
	LibraryPath   string // libonnxruntime shared library; empty uses the platform default
	Dimensions    int    // hidden size, 384 for all-MiniLM-L6-v2
	MaxTokens     int    // sequence cap including [CLS] and [SEP], default 128
}

func (c *Config) defaults() {
	if c.Dimensions == 0 {
		c.Dimensions = 384
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 128
	}
}
