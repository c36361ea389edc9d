package llm

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// sseBody adapts a text/event-stream response body to the line-delimited
// JSON contract: each SSE data payload becomes one line. Event names and
// comments are dropped; the JSON payloads carry their own type field.
type sseBody struct {
	underlying io.ReadCloser
	scanner    *bufio.Scanner
	buf        bytes.Buffer
}

func newSSEBody(body io.ReadCloser) io.ReadCloser {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &sseBody{
		underlying: body,
		scanner:    sc,
	}
}

func (s *sseBody) Read(p []byte) (int, error) {
	for s.buf.Len() == 0 {
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return 0, err
			}
			return 0, io.EOF
		}
		line := s.scanner.Text()
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "" || data == "[DONE]" {
			continue
		}
		s.buf.WriteString(data)
		s.buf.WriteByte('\n')
	}
	return s.buf.Read(p)
}

func (s *sseBody) Close() error {
	return s.underlying.Close()
}
