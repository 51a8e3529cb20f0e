package domain

import "strings"

// ArchiveRecord points a block at the archive transaction that stores it.
type ArchiveRecord struct {
	BlockNumber uint64 `json:"block_number"`
	BlockHash   string `json:"block_hash"`
	ArchiveID   string `json:"arweave_hash"`
}

// Tag is a name/value pair attached to an archive upload.
type Tag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Tag names understood by the archive index.
const (
	TagProtocol      = "Protocol"
	TagExExType      = "ExEx-Type"
	TagContentType   = "Content-Type"
	TagEncoding      = "WeaveVM:Encoding"
	TagBlockNumber   = "Block-Number"
	TagBlockHash     = "Block-Hash"
	TagClientVersion = "Client-Version"
	TagNetwork       = "Network"
	TagBackfill      = "WeaveVM:Backfill"
)

// NormalizeHash strips the 0x prefix used on the wire. Hashes are stored bare.
func NormalizeHash(hash string) string {
	return strings.TrimPrefix(hash, "0x")
}
