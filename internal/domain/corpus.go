package domain

// Word is one token of a walk sentence: a NodeID or a PropertyID. The
// shared ID sequence keeps the two interpretations from colliding.
type Word int64

// Sentence is one serialized walk, alternating node and property words
// starting and ending at a node: v0 p1 v1 p2 v2 ...
type Sentence []Word

// SentenceWriter persists sentences to a corpus. Close flushes.
type SentenceWriter interface {
	Write(s Sentence) error
	Close() error
}

// SentenceReader reads sentences back in write order. Read returns io.EOF
// once the corpus is exhausted.
type SentenceReader interface {
	Read() (Sentence, error)
	Close() error
}
