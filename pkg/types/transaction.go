package types

import (
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"
)

// TxKind is the tag of a Transaction. The numeric values are part of the
// circuit input layout.
type TxKind uint8

const (
	KindTransferChips TxKind = 0
	KindTransferNft   TxKind = 1
)

func (k TxKind) String() string {
	switch k {
	case KindTransferChips:
		return "chips"
	case KindTransferNft:
		return "nft"
	default:
		return fmt.Sprintf("TxKind(%d)", uint8(k))
	}
}

// Transaction is a pending transfer. Value holds the chip amount for
// KindTransferChips and the nft id for KindTransferNft.
type Transaction struct {
	Kind  TxKind
	From  AssetID
	To    AssetID
	Value uint256.Int
}

func TransferChips(from, to AssetID, amount *uint256.Int) Transaction {
	return Transaction{Kind: KindTransferChips, From: from, To: to, Value: *amount}
}

func TransferNft(from, to AssetID, nftID *uint256.Int) Transaction {
	return Transaction{Kind: KindTransferNft, From: from, To: to, Value: *nftID}
}

type txJSON struct {
	Kind  string  `json:"kind"`
	From  AssetID `json:"from"`
	To    AssetID `json:"to"`
	Value string  `json:"value"`
}

func (tx Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(txJSON{
		Kind:  tx.Kind.String(),
		From:  tx.From,
		To:    tx.To,
		Value: tx.Value.Dec(),
	})
}

func (tx *Transaction) UnmarshalJSON(b []byte) error {
	var raw txJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	switch raw.Kind {
	case "chips":
		tx.Kind = KindTransferChips
	case "nft":
		tx.Kind = KindTransferNft
	default:
		return fmt.Errorf("unknown transaction kind %q", raw.Kind)
	}

	v, err := uint256.FromDecimal(raw.Value)
	if err != nil {
		return fmt.Errorf("transaction value %q: %w", raw.Value, err)
	}

	tx.From = raw.From
	tx.To = raw.To
	tx.Value = *v
	return nil
}
