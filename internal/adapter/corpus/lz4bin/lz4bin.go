// Package lz4bin reads and writes walk corpora as LZ4 frame streams.
//
// Inside the frame every word is a 5-byte big-endian unsigned integer
// holding the word value plus one; five zero bytes terminate a sentence.
// The +1 shift keeps the all-zero terminator out of the value range.
package lz4bin

const wordSize = 5

// MaxWordValue is the largest word the format can carry. One value of the
// 40-bit range is lost to the shift that frees up the terminator.
const MaxWordValue = (1 << (8 * wordSize)) - 2
