// Package wire implements the low-level framing layer shared by all
// streaming providers: incremental line assembly from raw network chunks,
// and classification of complete lines into frames for the three wire
// formats (NDJSON, plain SSE, typed SSE).
package wire

import (
	"fmt"
	"strings"
)

// DefaultMaxLineBytes bounds how large a single unterminated line may grow
// before the stream is considered pathological.
const DefaultMaxLineBytes = 1 << 20 // 1 MiB

// ErrLineTooLong is returned by LineBuffer.Append when the unterminated
// remainder exceeds the configured maximum. It maps to a terminal
// resource-exhausted stream error upstream.
type ErrLineTooLong struct {
	Limit int
}

func (e *ErrLineTooLong) Error() string {
	return fmt.Sprintf("wire: line exceeds %d bytes without a terminator", e.Limit)
}

// LineBuffer accumulates raw bytes and slices out complete lines.
//
// Bytes are appended at the back and drained from the front; a byte is never
// delivered in two lines and never dropped. Text conversion happens only on
// complete lines, so a multi-byte UTF-8 character split across two chunk
// boundaries is reassembled correctly.
//
// A LineBuffer is owned by exactly one stream task and is not safe for
// concurrent use.
type LineBuffer struct {
	rem      []byte
	maxBytes int
}

// NewLineBuffer returns a LineBuffer that fails once an unterminated line
// exceeds maxBytes. maxBytes <= 0 selects DefaultMaxLineBytes.
func NewLineBuffer(maxBytes int) *LineBuffer {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxLineBytes
	}
	return &LineBuffer{maxBytes: maxBytes}
}

// Append adds one network chunk and returns every complete line found, in
// order. Lines are returned without the trailing newline; a trailing CR is
// trimmed so CRLF streams behave like LF streams. Content after the last
// newline is retained for the next call.
func (b *LineBuffer) Append(p []byte) ([]string, error) {
	b.rem = append(b.rem, p...)

	var lines []string
	start := 0
	for i := start; i < len(b.rem); i++ {
		if b.rem[i] != '\n' {
			continue
		}
		line := string(b.rem[start:i])
		line = strings.TrimSuffix(line, "\r")
		lines = append(lines, line)
		start = i + 1
	}

	if start > 0 {
		// Drain consumed bytes from the front.
		b.rem = b.rem[:copy(b.rem, b.rem[start:])]
	}

	if len(b.rem) > b.maxBytes {
		return lines, &ErrLineTooLong{Limit: b.maxBytes}
	}
	return lines, nil
}

// Pending returns the number of buffered bytes awaiting a line terminator.
func (b *LineBuffer) Pending() int {
	return len(b.rem)
}
