package protocol

import (
	"bufio"
	"errors"
	"io"

	"github.com/wordstep/wordstep/config"
)

// WordReader splits a source into the maximal runs of non-whitespace
// characters that travel one per data message.
type WordReader struct {
	scanner *bufio.Scanner
	closer  io.Closer
}

func NewWordReader(r io.Reader) *WordReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 256), config.MaxMessageSize)
	scanner.Split(scanWords)
	wr := &WordReader{scanner: scanner}
	if c, ok := r.(io.Closer); ok {
		wr.closer = c
	}
	return wr
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// scanWords splits on ASCII whitespace only, other bytes including
// multibyte Unicode spaces stay inside the word.
func scanWords(data []byte, atEOF bool) (int, []byte, error) {
	start := 0
	for start < len(data) && isSpace(data[start]) {
		start++
	}
	for i := start; i < len(data); i++ {
		if isSpace(data[i]) {
			return i + 1, data[start:i], nil
		}
	}
	if atEOF && len(data) > start {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}

// Next returns io.EOF once the source is exhausted.
func (r *WordReader) Next() (string, error) {
	if r.scanner.Scan() {
		word := r.scanner.Text()
		if len(word) >= config.MaxMessageSize {
			return "", ErrWordTooLong
		}
		return word, nil
	}
	err := r.scanner.Err()
	if err == nil {
		return "", io.EOF
	}
	if errors.Is(err, bufio.ErrTooLong) {
		return "", ErrWordTooLong
	}
	return "", err
}

func (r *WordReader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// WordWriter stores one received word per line.
type WordWriter struct {
	w      *bufio.Writer
	closer io.Closer
	count  int
}

func NewWordWriter(w io.Writer) *WordWriter {
	ww := &WordWriter{w: bufio.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		ww.closer = c
	}
	return ww
}

func (w *WordWriter) WriteWord(word string) error {
	_, err := w.w.WriteString(word)
	if err != nil {
		return err
	}
	err = w.w.WriteByte('\n')
	if err != nil {
		return err
	}
	w.count++
	return nil
}

func (w *WordWriter) Count() int {
	return w.count
}

func (w *WordWriter) Close() error {
	err := w.w.Flush()
	if w.closer == nil {
		return err
	}
	cerr := w.closer.Close()
	if err != nil {
		return err
	}
	return cerr
}
