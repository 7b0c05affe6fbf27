//go:build !onnx

package onnx

import "context"

// Embedder is unavailable in this build.
type Embedder struct{}

// New always fails in builds without the onnx tag.
func New(Config) (*Embedder, error) { return nil, ErrUnavailable }

// Embed always fails in builds without the onnx tag.
func (*Embedder) Embed(context.Context, string) ([]float32, error) { return nil, ErrUnavailable }

// Dimensions returns 0.
func (*Embedder) Dimensions() int { return 0 }

// Close is a no-op.
func (*Embedder) Close() error { return nil }
