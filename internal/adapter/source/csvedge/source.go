// Package csvedge streams label triples out of delimited text files, with
// transparent decompression. The compression format is sniffed from file
// content, never from the extension; dumps get renamed too often for that.
package csvedge

import (
	"bufio"
	"compress/bzip2"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/fairyhunter13/kg-corpus/internal/domain"
)

// Options controls parsing. The zero value reads comma-separated rows and
// treats the first row as data.
type Options struct {
	// Delimiter separates columns; 0 means comma.
	Delimiter rune
	// SkipHeader drops the first row.
	SkipHeader bool
}

// Source reads subject/predicate/object rows from one file.
type Source struct {
	path       string
	delimiter  rune
	skipHeader bool
}

// New validates the path and returns a source. The file is opened lazily on
// each pass so a Source can be streamed more than once.
func New(path string, opt Options) (*Source, error) {
	if path == "" {
		return nil, fmt.Errorf("op=csv.new: %w: empty path", domain.ErrInvalidArgument)
	}
	d := opt.Delimiter
	if d == 0 {
		d = ','
	}
	return &Source{path: path, delimiter: d, skipHeader: opt.SkipHeader}, nil
}

// Each streams every row as a LabelTriple. A row without exactly three
// columns aborts the stream with a corruption error naming the line.
func (s *Source) Each(ctx domain.Context, fn func(domain.LabelTriple) error) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("op=csv.open: %w", err)
	}
	defer f.Close()

	plain, closeDecomp, err := decompress(f)
	if err != nil {
		return fmt.Errorf("op=csv.open: %w", err)
	}
	defer closeDecomp()

	cr := csv.NewReader(plain)
	cr.Comma = s.delimiter
	cr.FieldsPerRecord = 3
	cr.ReuseRecord = true
	cr.LazyQuotes = true

	if s.skipHeader {
		if _, err := cr.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return rowError(err)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return rowError(err)
		}
		t := domain.LabelTriple{Subject: rec[0], Predicate: rec[1], Object: rec[2]}
		if err := fn(t); err != nil {
			return err
		}
	}
}

// Count streams the file once and returns the number of data rows.
func (s *Source) Count(ctx domain.Context) (int64, error) {
	var n int64
	err := s.Each(ctx, func(domain.LabelTriple) error {
		n++
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func rowError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) && errors.Is(pe.Err, csv.ErrFieldCount) {
		return fmt.Errorf("op=csv.read: %w: row at line %d does not have 3 columns", domain.ErrCorrupt, pe.Line)
	}
	return fmt.Errorf("op=csv.read: %w", err)
}

// decompress sniffs r and returns a plain-text view plus a release func.
func decompress(r io.Reader) (io.Reader, func(), error) {
	br := bufio.NewReaderSize(r, 4096)
	head, err := br.Peek(3072)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, nil, err
	}
	noop := func() {}

	switch mt := mimetype.Detect(head); {
	case mt.Is("application/gzip"):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, err
		}
		return zr, func() { _ = zr.Close() }, nil
	case mt.Is("application/x-bzip2"):
		return bzip2.NewReader(br), noop, nil
	case mt.Is("application/x-xz"):
		xr, err := xz.NewReader(br)
		if err != nil {
			return nil, nil, err
		}
		return xr, noop, nil
	case mt.Is("application/zstd"):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, nil, err
		}
		return zr.IOReadCloser(), zr.Close, nil
	default:
		return br, noop, nil
	}
}
