// Package codec turns blocks into archive payloads: Borsh serialization
// followed by Brotli compression.
package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/near/borsh-go"

	"github.com/vietddude/weavearchive/internal/core/domain"
)

// EncodingName is the value of the encoding tag attached to uploads.
const EncodingName = "Borsh-Brotli"

const (
	brotliQuality = 11
	brotliLGWin   = 22
)

// Encode serializes a block with Borsh. Optional fields become Option,
// lists become length-prefixed vectors, in struct field order.
func Encode(block *domain.Block) ([]byte, error) {
	if block == nil {
		return nil, fmt.Errorf("%w: nil block", domain.ErrEncoding)
	}
	data, err := borsh.Serialize(*block)
	if err != nil {
		return nil, fmt.Errorf("%w: borsh serialize: %w", domain.ErrEncoding, err)
	}
	return data, nil
}

// Decode is the inverse of Encode.
func Decode(data []byte) (*domain.Block, error) {
	var block domain.Block
	if err := borsh.Deserialize(&block, data); err != nil {
		return nil, fmt.Errorf("%w: borsh deserialize: %w", domain.ErrEncoding, err)
	}
	return &block, nil
}

// Compress applies Brotli at quality 11 with a 22-bit window.
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterOptions(&buf, brotli.WriterOptions{
		Quality: brotliQuality,
		LGWin:   brotliLGWin,
	})
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("%w: brotli write: %w", domain.ErrEncoding, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: brotli close: %w", domain.ErrEncoding, err)
	}
	return buf.Bytes(), nil
}

// Decompress is the exact inverse of Compress.
func Decompress(data []byte) ([]byte, error) {
	out, err := io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: brotli read: %w", domain.ErrEncoding, err)
	}
	return out, nil
}

// EncodeCompressed encodes and compresses a block in one step.
func EncodeCompressed(block *domain.Block) ([]byte, error) {
	data, err := Encode(block)
	if err != nil {
		return nil, err
	}
	return Compress(data)
}

// DecodeCompressed reverses EncodeCompressed.
func DecodeCompressed(payload []byte) (*domain.Block, error) {
	data, err := Decompress(payload)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}
