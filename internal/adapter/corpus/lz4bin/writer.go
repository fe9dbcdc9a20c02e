package lz4bin

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"

	"github.com/fairyhunter13/kg-corpus/internal/domain"
)

// Writer streams sentences into an LZ4 frame. Not safe for concurrent use;
// the generate pipeline funnels all sentences through one writer goroutine.
type Writer struct {
	lz *lz4.Writer
	bw *bufio.Writer
	c  io.Closer
}

// NewWriter wraps w. The caller keeps ownership of w; Close only finishes
// the frame.
func NewWriter(w io.Writer) *Writer {
	lz := lz4.NewWriter(w)
	return &Writer{lz: lz, bw: bufio.NewWriter(lz)}
}

// Create opens path for writing, truncating any previous corpus. Close
// also closes the file.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("op=corpus.create: %w", err)
	}
	w := NewWriter(f)
	w.c = f
	return w, nil
}

// Write appends one sentence. Every word must be in [0, MaxWordValue] and
// the sentence must not be empty; an empty sentence would be
// indistinguishable from a stray terminator.
func (w *Writer) Write(s domain.Sentence) error {
	if len(s) == 0 {
		return fmt.Errorf("op=corpus.write: %w: empty sentence", domain.ErrInvalidArgument)
	}
	var buf [wordSize]byte
	for _, word := range s {
		if word < 0 || word > MaxWordValue {
			return fmt.Errorf("op=corpus.write: %w: word %d out of range", domain.ErrInvalidArgument, word)
		}
		putWord(&buf, uint64(word)+1)
		if _, err := w.bw.Write(buf[:]); err != nil {
			return fmt.Errorf("op=corpus.write: %w", err)
		}
	}
	putWord(&buf, 0)
	if _, err := w.bw.Write(buf[:]); err != nil {
		return fmt.Errorf("op=corpus.write: %w", err)
	}
	return nil
}

// Close flushes buffered words, finishes the LZ4 frame and closes the
// underlying file when Create opened it.
func (w *Writer) Close() error {
	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("op=corpus.close: %w", err)
	}
	if err := w.lz.Close(); err != nil {
		return fmt.Errorf("op=corpus.close: %w", err)
	}
	if w.c != nil {
		if err := w.c.Close(); err != nil {
			return fmt.Errorf("op=corpus.close: %w", err)
		}
	}
	return nil
}

func putWord(buf *[wordSize]byte, v uint64) {
	buf[0] = byte(v >> 32)
	buf[1] = byte(v >> 24)
	buf[2] = byte(v >> 16)
	buf[3] = byte(v >> 8)
	buf[4] = byte(v)
}
