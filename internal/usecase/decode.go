package usecase

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/fairyhunter13/kg-corpus/internal/domain"
	"github.com/fairyhunter13/kg-corpus/internal/labelcache"
)

// DecodeService renders a binary corpus back into label text, one sentence
// per line, words separated by single spaces.
type DecodeService struct{}

// Decode reads sentences from r and writes their label form to out,
// resolving IDs through idx. Words at even offsets are nodes, odd offsets
// are properties; an ID that does not resolve in its position's table is
// corruption. Returns the number of sentences written.
func (DecodeService) Decode(ctx domain.Context, r domain.SentenceReader, out io.Writer, idx domain.Index) (int64, error) {
	nodes := labelcache.New[int64, string](labelcache.DefaultLookupSize)
	props := labelcache.New[int64, string](labelcache.DefaultLookupSize)

	bw := bufio.NewWriter(out)
	var sentences int64
	for {
		if err := ctx.Err(); err != nil {
			return sentences, err
		}
		sentence, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sentences, err
		}
		for i, word := range sentence {
			if i > 0 {
				if err := bw.WriteByte(' '); err != nil {
					return sentences, fmt.Errorf("op=usecase.decode: %w", err)
				}
			}
			label, err := resolveWord(ctx, idx, nodes, props, word, i%2 == 0)
			if err != nil {
				return sentences, err
			}
			if _, err := bw.WriteString(label); err != nil {
				return sentences, fmt.Errorf("op=usecase.decode: %w", err)
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return sentences, fmt.Errorf("op=usecase.decode: %w", err)
		}
		sentences++
	}
	if err := bw.Flush(); err != nil {
		return sentences, fmt.Errorf("op=usecase.decode: %w", err)
	}
	return sentences, nil
}

func resolveWord(ctx domain.Context, idx domain.Index, nodes, props *labelcache.Cache[int64, string], word domain.Word, isNode bool) (string, error) {
	cache := props
	if isNode {
		cache = nodes
	}
	if label, ok := cache.Get(int64(word)); ok {
		return label, nil
	}

	var (
		label string
		err   error
	)
	if isNode {
		label, err = idx.NodeLabelFor(ctx, domain.NodeID(word))
	} else {
		label, err = idx.PropertyLabelFor(ctx, domain.PropertyID(word))
	}
	if errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("op=usecase.decode: %w: word %d resolves to no label", domain.ErrCorrupt, word)
	}
	if err != nil {
		return "", err
	}
	cache.Put(int64(word), label)
	return label, nil
}
