package onnx

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"
)

const maxWordChars = 100

// Tokenizer is an uncased BERT WordPiece tokenizer.
type Tokenizer struct {
	vocab map[string]int64
	cls   int64
	sep   int64
	unk   int64
}

// LoadTokenizer reads the vocabulary from a Hugging Face tokenizer.json.
func LoadTokenizer(path string) (*Tokenizer, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from config
	if err != nil {
		return nil, fmt.Errorf("read tokenizer: %w", err)
	}

	var doc struct {
		Model struct {
			Vocab map[string]int64 `json:"vocab"`
		} `json:"model"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse tokenizer: %w", err)
	}
	return NewTokenizer(doc.Model.Vocab)
}

// NewTokenizer builds a tokenizer over vocab, which must contain the
// [CLS], [SEP] and [UNK] special tokens.
func NewTokenizer(vocab map[string]int64) (*Tokenizer, error) {
	t := &Tokenizer{vocab: vocab}
	for tok, dst := range map[string]*int64{"[CLS]": &t.cls, "[SEP]": &t.sep, "[UNK]": &t.unk} {
		id, ok := vocab[tok]
		if !ok {
			return nil, fmt.Errorf("tokenizer vocabulary lacks %s", tok)
		}
		*dst = id
	}
	return t, nil
}

// Encode returns [CLS] tokens... [SEP], truncated to maxLen ids.
func (t *Tokenizer) Encode(text string, maxLen int) []int64 {
	ids := []int64{t.cls}
	for _, word := range basicSplit(text) {
		for _, id := range t.wordPiece(word) {
			if len(ids) == maxLen-1 {
				return append(ids, t.sep)
			}
			ids = append(ids, id)
		}
	}
	return append(ids, t.sep)
}

// basicSplit lowercases text and splits it on whitespace, emitting every
// punctuation rune as its own token.
func basicSplit(text string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsSpace(r) || unicode.IsControl(r):
			flush()
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush()
			out = append(out, string(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

// wordPiece splits word greedily into the longest vocabulary pieces. A word
// with any unknown piece becomes a single [UNK].
func (t *Tokenizer) wordPiece(word string) []int64 {
	runes := []rune(word)
	if len(runes) > maxWordChars {
		return []int64{t.unk}
	}

	var ids []int64
	for start := 0; start < len(runes); {
		end := len(runes)
		found := int64(-1)
		for ; end > start; end-- {
			piece := string(runes[start:end])
			if start > 0 {
				piece = "##" + piece
			}
			if id, ok := t.vocab[piece]; ok {
				found = id
				break
			}
		}
		if found < 0 {
			return []int64{t.unk}
		}
		ids = append(ids, found)
		start = end
	}
	return ids
}
