package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
	hf "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

const fallbackEncoding = "cl100k_base"

// Tokenizer estimates model token counts for a piece of text. The
// whitespace counts in the export statistics are a rough heuristic; a
// Tokenizer gives the number a specific model would actually see.
type Tokenizer interface {
	Count(text string) (int, error)
	Name() string
}

type tiktokenTokenizer struct {
	enc  *tiktoken.Tiktoken
	name string
}

// NewTiktokenTokenizer resolves the tiktoken encoding for model. Unknown
// models fall back to the cl100k_base encoding.
func NewTiktokenTokenizer(model string, log Logger) (Tokenizer, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		log.Warnf("no tiktoken encoding for model %q, falling back to %s: %v", model, fallbackEncoding, err)
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("loading %s encoding: %w", fallbackEncoding, err)
		}
		return &tiktokenTokenizer{enc: enc, name: fallbackEncoding}, nil
	}
	return &tiktokenTokenizer{enc: enc, name: model}, nil
}

func (t *tiktokenTokenizer) Count(text string) (int, error) {
	return len(t.enc.EncodeOrdinary(text)), nil
}

func (t *tiktokenTokenizer) Name() string { return t.name }

type hfTokenizer struct {
	tok  *hf.Tokenizer
	name string
}

// NewHFTokenizer loads a HuggingFace tokenizer.json from disk.
func NewHFTokenizer(path string) (Tokenizer, error) {
	tok, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading tokenizer from %s: %w", path, err)
	}
	return &hfTokenizer{tok: tok, name: filepath.Base(path)}, nil
}

func (t *hfTokenizer) Count(text string) (int, error) {
	en, err := t.tok.EncodeSingle(text)
	if err != nil {
		return 0, err
	}
	return len(en.Tokens), nil
}

func (t *hfTokenizer) Name() string { return t.name }

// CountFileTokens reads every path and sums the tokenizer's counts over a
// small worker pool. Files that cannot be read or encoded are logged and
// count zero. workers <= 0 means one worker per CPU.
func CountFileTokens(paths []string, tok Tokenizer, workers int, log Logger) int {
	if len(paths) == 0 {
		return 0
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	jobs := make(chan string, len(paths))
	results := make(chan int, len(paths))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				content, err := os.ReadFile(path)
				if err != nil {
					log.Warnf("cannot read %s for token count: %v", path, err)
					results <- 0
					continue
				}
				n, err := tok.Count(string(content))
				if err != nil {
					log.Warnf("cannot tokenize %s: %v", path, err)
					results <- 0
					continue
				}
				results <- n
			}
		}()
	}

	for _, p := range paths {
		jobs <- p
	}
	close(jobs)
	wg.Wait()
	close(results)

	total := 0
	for n := range results {
		total += n
	}
	return total
}
