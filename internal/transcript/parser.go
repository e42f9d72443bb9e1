package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

const maxDocumentSize = 50 * 1024 * 1024 // 50MB

// ErrEmptyDocument is returned when the input holds no transcript array.
var ErrEmptyDocument = errors.New("transcript: document has no transcript field")

// ParseResult holds a document along with per-segment decode errors.
type ParseResult struct {
	Document   *Document
	ErrorCount int
	Errors     []ParseError
}

// ParseError records a segment that could not be decoded.
type ParseError struct {
	Index int
	Error string
}

type rawDocument struct {
	Metadata   Metadata          `json:"metadata"`
	Transcript []json.RawMessage `json:"transcript"`
}

// Parse decodes a transcript document. Segments that fail to decode are kept
// as empty placeholders so segment indices stay aligned with the source, and
// are reported in the result.
func Parse(r io.Reader) (*ParseResult, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}
	if len(data) > maxDocumentSize {
		return nil, fmt.Errorf("transcript too large: exceeds %d bytes", maxDocumentSize)
	}

	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding transcript: %w", err)
	}
	if raw.Transcript == nil {
		return nil, ErrEmptyDocument
	}

	result := &ParseResult{
		Document: &Document{
			Metadata:   raw.Metadata,
			Transcript: make([]Segment, len(raw.Transcript)),
		},
		Errors: make([]ParseError, 0),
	}

	for i, msg := range raw.Transcript {
		var seg Segment
		if err := json.Unmarshal(msg, &seg); err != nil {
			result.ErrorCount++
			if len(result.Errors) < 10 {
				result.Errors = append(result.Errors, ParseError{
					Index: i,
					Error: fmt.Sprintf("JSON parse error: %v", err),
				})
			}
			continue
		}
		result.Document.Transcript[i] = seg
	}

	return result, nil
}

// Load reads and parses a transcript file.
func Load(path string) (*ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening transcript: %w", err)
	}
	defer f.Close()

	result, err := Parse(f)
	if err != nil {
		return nil, err
	}
	if result.Document.Metadata.File == "" {
		result.Document.Metadata.File = path
	}
	return result, nil
}
