package lz4bin

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"

	"github.com/fairyhunter13/kg-corpus/internal/domain"
)

// Reader streams sentences out of an LZ4 frame in write order.
type Reader struct {
	br *bufio.Reader
	c  io.Closer
}

// NewReader wraps r. The caller keeps ownership of r.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReader(lz4.NewReader(r))}
}

// Open opens a corpus file. Close also closes the file.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("op=corpus.open: %w", err)
	}
	r := NewReader(f)
	r.c = f
	return r, nil
}

// Read returns the next sentence, or io.EOF after the last one. The stream
// ending in the middle of a sentence or of a word is corruption, not EOF:
// a cut-off corpus must not pass for a complete one.
func (r *Reader) Read() (domain.Sentence, error) {
	var (
		buf      [wordSize]byte
		sentence domain.Sentence
	)
	for {
		if _, err := io.ReadFull(r.br, buf[:]); err != nil {
			switch {
			case errors.Is(err, io.EOF) && len(sentence) == 0:
				return nil, io.EOF
			case errors.Is(err, io.EOF):
				return nil, fmt.Errorf("op=corpus.read: %w: unterminated sentence", domain.ErrCorrupt)
			case errors.Is(err, io.ErrUnexpectedEOF):
				return nil, fmt.Errorf("op=corpus.read: %w: truncated word", domain.ErrCorrupt)
			default:
				return nil, fmt.Errorf("op=corpus.read: %w", err)
			}
		}
		v := getWord(&buf)
		if v == 0 {
			// Terminator. Skip stray ones between sentences.
			if len(sentence) == 0 {
				continue
			}
			return sentence, nil
		}
		sentence = append(sentence, domain.Word(v-1))
	}
}

// Close closes the underlying file when Open opened it.
func (r *Reader) Close() error {
	if r.c == nil {
		return nil
	}
	if err := r.c.Close(); err != nil {
		return fmt.Errorf("op=corpus.close: %w", err)
	}
	return nil
}

func getWord(buf *[wordSize]byte) uint64 {
	return uint64(buf[0])<<32 |
		uint64(buf[1])<<24 |
		uint64(buf[2])<<16 |
		uint64(buf[3])<<8 |
		uint64(buf[4])
}
