package gemini

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"io"

	"fitcheck-workers/internal/capabilities"
	apperrors "fitcheck-workers/internal/common/errors"

	"github.com/goccy/go-json"
)

// inline images arrive as a single SSE line and can be several megabytes
const maxEventSize = 32 << 20

type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	pending []capabilities.Chunk
}

func newSSEStream(body io.ReadCloser) *sseStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	return &sseStream{body: body, scanner: scanner}
}

func (s *sseStream) Next() (capabilities.Chunk, error) {
	for len(s.pending) == 0 {
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return capabilities.Chunk{}, apperrors.NewProviderUnavailableError(ProviderName, err)
			}
			return capabilities.Chunk{}, io.EOF
		}

		line := bytes.TrimSpace(s.scanner.Bytes())
		data, ok := bytes.CutPrefix(line, []byte("data:"))
		if !ok {
			continue
		}
		data = bytes.TrimSpace(data)
		if len(data) == 0 {
			continue
		}

		var event generateResponse
		if err := json.Unmarshal(data, &event); err != nil {
			return capabilities.Chunk{}, apperrors.NewProviderResponseInvalidError(ProviderName, "malformed stream event")
		}

		for _, p := range event.parts() {
			switch {
			case p.InlineData != nil && p.InlineData.Data != "":
				raw, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
				if err != nil {
					return capabilities.Chunk{}, apperrors.NewProviderResponseInvalidError(ProviderName, "inline data is not base64")
				}
				s.pending = append(s.pending, capabilities.Chunk{Data: raw, MimeType: p.InlineData.MimeType})
			case p.Text != "":
				s.pending = append(s.pending, capabilities.Chunk{Text: p.Text})
			}
		}
	}

	chunk := s.pending[0]
	s.pending = s.pending[1:]
	return chunk, nil
}

func (s *sseStream) Close() error {
	return s.body.Close()
}
