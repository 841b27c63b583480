// Package proto implements the newline-delimited wire format shared by the
// relay server and its clients.
package proto

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"unicode"
)

// Terminator ends every line on the wire.
const Terminator = "\n"

// ErrLineTooLong is returned when a peer sends more than the allowed bytes without a line break.
var ErrLineTooLong = errors.New("line too long")

// LineReader extracts complete lines from a byte stream regardless of how the
// stream was split into reads by the transport.
type LineReader struct {
	r   *bufio.Reader
	max int
}

// NewLineReader wraps r. Lines longer than max bytes fail with ErrLineTooLong;
// max <= 0 disables the limit.
func NewLineReader(r io.Reader, max int) *LineReader {
	size := 4096
	if max > 0 && max+2 > size {
		size = max + 2
	}
	return &LineReader{r: bufio.NewReaderSize(r, size), max: max}
}

// ReadLine returns the next line without its terminator (LF or CRLF). An
// unterminated line before EOF is returned once, followed by io.EOF.
func (l *LineReader) ReadLine() (string, error) {
	var line []byte
	for {
		chunk, isPrefix, err := l.r.ReadLine()
		if err != nil {
			return "", err
		}
		line = append(line, chunk...)
		if l.max > 0 && len(line) > l.max {
			return "", ErrLineTooLong
		}
		if !isPrefix {
			return Sanitize(string(line)), nil
		}
	}
}

// Sanitize drops invalid UTF-8 and control characters other than tab.
func Sanitize(s string) string {
	s = strings.ToValidUTF8(s, "")
	return strings.Map(func(r rune) rune {
		if r != '\t' && unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// WriteLine writes s followed by the terminator in a single write call.
func WriteLine(w io.Writer, s string) error {
	s = strings.TrimRight(s, "\r\n")
	_, err := io.WriteString(w, s+Terminator)
	return err
}
