package domain

// Transaction is a transaction object inlined in a Block. All fields are optional
// hex strings, in canonical encoding order.
type Transaction struct {
	BlockHash        *string `json:"blockHash,omitempty"`
	BlockNumber      *string `json:"blockNumber,omitempty"`
	ChainID          *string `json:"chainId,omitempty"`
	From             *string `json:"from,omitempty"`
	Gas              *string `json:"gas,omitempty"`
	GasPrice         *string `json:"gasPrice,omitempty"`
	Hash             *string `json:"hash,omitempty"`
	Input            *string `json:"input,omitempty"`
	Nonce            *string `json:"nonce,omitempty"`
	R                *string `json:"r,omitempty"`
	S                *string `json:"s,omitempty"`
	To               *string `json:"to,omitempty"`
	TransactionIndex *string `json:"transactionIndex,omitempty"`
	Type             *string `json:"type,omitempty"`
	V                *string `json:"v,omitempty"`
	Value            *string `json:"value,omitempty"`
}
