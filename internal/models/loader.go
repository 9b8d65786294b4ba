package models

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/tidwall/gjson"
)

// maxLineSize bounds a single line-delimited record.
const maxLineSize = 16 * 1024 * 1024

// LoadSpansFile opens path and reads its span records.
func LoadSpansFile(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open span file: %w", err)
	}
	defer f.Close()

	return LoadSpans(f)
}

// LoadSpans reads span records from either a json array or line-delimited json. Records are
// returned unparsed; validity is checked per record by ParseSpans.
func LoadSpans(r io.Reader) ([]json.RawMessage, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read spans: %w", err)
	}

	if first == '[' {
		data, err := io.ReadAll(br)
		if err != nil {
			return nil, fmt.Errorf("failed to read spans: %w", err)
		}
		if !gjson.ValidBytes(data) {
			return nil, fmt.Errorf("span array: %w", ErrInvalidJSON)
		}
		var records []json.RawMessage
		gjson.ParseBytes(data).ForEach(func(_, value gjson.Result) bool {
			records = append(records, json.RawMessage(value.Raw))
			return true
		})
		return records, nil
	}

	var records []json.RawMessage
	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		records = append(records, json.RawMessage(append([]byte(nil), line...)))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan spans: %w", err)
	}
	return records, nil
}

// ParseSpans parses every record, skipping and counting the malformed ones.
func ParseSpans(records []json.RawMessage, logger *slog.Logger) (spans []*Span, skipped int) {
	if logger == nil {
		logger = slog.Default()
	}
	spans = make([]*Span, 0, len(records))
	for i, raw := range records {
		span, err := ParseSpan(raw)
		if err != nil {
			var merr *MalformedSpanError
			if errors.As(err, &merr) {
				merr.Index = i
			}
			logger.Warn("Skipping malformed span", "error", err)
			skipped++
			continue
		}
		spans = append(spans, span)
	}
	return spans, skipped
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		if err := br.UnreadByte(); err != nil {
			return 0, err
		}
		return b, nil
	}
}
