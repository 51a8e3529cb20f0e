package codec

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/weavearchive/internal/core/domain"
)

func fullBlock() *domain.Block {
	s := domain.Ptr[string]
	return &domain.Block{
		BaseFeePerGas:         s("0x7"),
		BlobGasUsed:           s("0x0"),
		Difficulty:            s("0x0"),
		ExcessBlobGas:         s("0x0"),
		ExtraData:             s("0x"),
		GasLimit:              s("0x1c9c380"),
		GasUsed:               s("0x5208"),
		Hash:                  s("0xabc123"),
		LogsBloom:             s("0x00"),
		Miner:                 s("0xminer"),
		MixHash:               s("0xmix"),
		Nonce:                 s("0x0000000000000000"),
		Number:                s("0x1"),
		ParentBeaconBlockRoot: s("0xbeacon"),
		ParentHash:            s("0xparent"),
		ReceiptsRoot:          s("0xreceipts"),
		Sha3Uncles:            s("0xsha3"),
		Size:                  s("0x220"),
		StateRoot:             s("0xstate"),
		Timestamp:             s("0x65678900"),
		TotalDifficulty:       s("0x0"),
		Transactions: &[]domain.Transaction{{
			BlockHash:        s("0xabc123"),
			BlockNumber:      s("0x1"),
			ChainID:          s("0x3e7"),
			From:             s("0xfrom"),
			Gas:              s("0x5208"),
			GasPrice:         s("0x7"),
			Hash:             s("0xtx"),
			Input:            s("0x"),
			Nonce:            s("0x0"),
			R:                s("0xr"),
			S:                s("0xs"),
			To:               s("0xto"),
			TransactionIndex: s("0x0"),
			Type:             s("0x2"),
			V:                s("0x1"),
			Value:            s("0xde0b6b3a7640000"),
		}},
		Uncles:          &[]string{"0xuncle"},
		Withdrawals:     &[]string{"0xw1", "0xw2"},
		WithdrawalsRoot: s("0xwroot"),
	}
}

func TestEncodeDecode_AllAbsent(t *testing.T) {
	data, err := Encode(&domain.Block{})
	require.NoError(t, err)
	// 25 fields, each an absent Option tag
	assert.Equal(t, bytes.Repeat([]byte{0}, 25), data)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, &domain.Block{}, decoded)
}

func TestEncodeDecode_FullyPopulated(t *testing.T) {
	block := fullBlock()

	data, err := Encode(block)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, block, decoded)
}

func TestEncode_FieldLayout(t *testing.T) {
	block := &domain.Block{BaseFeePerGas: domain.Ptr("0x7")}

	data, err := Encode(block)
	require.NoError(t, err)

	// Option tag, u32 little-endian length, bytes, then 24 absent fields
	require.Len(t, data, 1+4+3+24)
	assert.Equal(t, byte(1), data[0])
	assert.Equal(t, uint32(3), binary.LittleEndian.Uint32(data[1:5]))
	assert.Equal(t, "0x7", string(data[5:8]))
}

func TestEncode_Deterministic(t *testing.T) {
	a, err := Encode(fullBlock())
	require.NoError(t, err)
	b, err := Encode(fullBlock())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncode_Nil(t *testing.T) {
	_, err := Encode(nil)
	assert.ErrorIs(t, err, domain.ErrEncoding)
}

func TestDecode_Truncated(t *testing.T) {
	data, err := Encode(fullBlock())
	require.NoError(t, err)

	_, err = Decode(data[:len(data)/2])
	assert.ErrorIs(t, err, domain.ErrEncoding)
}

func TestCompressDecompress(t *testing.T) {
	large := make([]byte, 4<<20+64<<10) // beyond the 4 MiB window
	_, err := rand.Read(large[:64<<10])
	require.NoError(t, err)
	copy(large[4<<20:], large[:64<<10])

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"small", []byte("hello archive")},
		{"large", large},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compressed, err := Compress(tt.data)
			require.NoError(t, err)

			out, err := Decompress(compressed)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(tt.data, out), "round trip mismatch")
		})
	}
}

func TestDecompress_Garbage(t *testing.T) {
	_, err := Decompress([]byte("definitely not brotli"))
	assert.ErrorIs(t, err, domain.ErrEncoding)
}

func TestEncodeCompressed_RoundTrip(t *testing.T) {
	block := fullBlock()

	payload, err := EncodeCompressed(block)
	require.NoError(t, err)

	decoded, err := DecodeCompressed(payload)
	require.NoError(t, err)
	assert.Equal(t, block, decoded)
}
