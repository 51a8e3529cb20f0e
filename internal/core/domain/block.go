package domain

// Block is a chain block as returned by eth_getBlockByNumber with full transactions.
// Every scalar is an optional hex string. Field order is the canonical encoding order
// and must not change: archived payloads are decoded by position.
type Block struct {
	BaseFeePerGas         *string        `json:"baseFeePerGas,omitempty"`
	BlobGasUsed           *string        `json:"blobGasUsed,omitempty"`
	Difficulty            *string        `json:"difficulty,omitempty"`
	ExcessBlobGas         *string        `json:"excessBlobGas,omitempty"`
	ExtraData             *string        `json:"extraData,omitempty"`
	GasLimit              *string        `json:"gasLimit,omitempty"`
	GasUsed               *string        `json:"gasUsed,omitempty"`
	Hash                  *string        `json:"hash,omitempty"`
	LogsBloom             *string        `json:"logsBloom,omitempty"`
	Miner                 *string        `json:"miner,omitempty"`
	MixHash               *string        `json:"mixHash,omitempty"`
	Nonce                 *string        `json:"nonce,omitempty"`
	Number                *string        `json:"number,omitempty"`
	ParentBeaconBlockRoot *string        `json:"parentBeaconBlockRoot,omitempty"`
	ParentHash            *string        `json:"parentHash,omitempty"`
	ReceiptsRoot          *string        `json:"receiptsRoot,omitempty"`
	Sha3Uncles            *string        `json:"sha3Uncles,omitempty"`
	Size                  *string        `json:"size,omitempty"`
	StateRoot             *string        `json:"stateRoot,omitempty"`
	Timestamp             *string        `json:"timestamp,omitempty"`
	TotalDifficulty       *string        `json:"totalDifficulty,omitempty"`
	Transactions          *[]Transaction `json:"transactions,omitempty"`
	Uncles                *[]string      `json:"uncles,omitempty"`
	Withdrawals           *[]string      `json:"withdrawals,omitempty"`
	WithdrawalsRoot       *string        `json:"withdrawalsRoot,omitempty"`
}

// TxCount returns the number of inlined transactions.
func (b *Block) TxCount() int {
	if b.Transactions == nil {
		return 0
	}
	return len(*b.Transactions)
}

// StringOrEmpty dereferences an optional field.
func StringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
