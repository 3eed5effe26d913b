package types

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// TxType defines the purpose of a transaction.
type TxType byte

const (
	TxTypeCreateProblem TxType = 0x01 // Post a number with an escrowed reward
	TxTypeTrySolve      TxType = 0x02 // Submit a factor pair for an open number
)

var (
	ErrUnsignedTransaction = errors.New("types: transaction is not signed")
	ErrInvalidSignature    = errors.New("types: invalid transaction signature")
	ErrNegativeReward      = errors.New("types: negative reward")
)

// String returns the wire name of the transaction type.
func (t TxType) String() string {
	switch t {
	case TxTypeCreateProblem:
		return "create_problem"
	case TxTypeTrySolve:
		return "try_solve"
	default:
		return fmt.Sprintf("unknown(%d)", byte(t))
	}
}

// Transaction is a signed request addressed to the bounty module. Only the
// fields relevant to the type are populated; the rest stay zero.
type Transaction struct {
	ChainID uint64   `json:"chainId"`
	Type    TxType   `json:"type"`
	Nonce   uint64   `json:"nonce"`
	Number  uint64   `json:"number"`
	Reward  *big.Int `json:"reward,omitempty"`
	A       uint64   `json:"a,omitempty"`
	B       uint64   `json:"b,omitempty"`

	// Signatures
	R *big.Int `json:"r"`
	S *big.Int `json:"s"`
	V *big.Int `json:"v"`

	from []byte
}

type txPayload struct {
	ChainID uint64
	Type    byte
	Nonce   uint64
	Number  uint64
	Reward  *big.Int
	A       uint64
	B       uint64
}

// Hash is the keccak256 digest of the RLP-encoded unsigned payload.
func (tx *Transaction) Hash() ([]byte, error) {
	reward := tx.Reward
	if reward == nil {
		reward = new(big.Int)
	}
	if reward.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNegativeReward, reward)
	}
	encoded, err := rlp.EncodeToBytes(&txPayload{
		ChainID: tx.ChainID,
		Type:    byte(tx.Type),
		Nonce:   tx.Nonce,
		Number:  tx.Number,
		Reward:  reward,
		A:       tx.A,
		B:       tx.B,
	})
	if err != nil {
		return nil, err
	}
	return crypto.Keccak256(encoded), nil
}

// Sign attaches a secp256k1 signature over Hash.
func (tx *Transaction) Sign(privKey *ecdsa.PrivateKey) error {
	hash, err := tx.Hash()
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(hash, privKey)
	if err != nil {
		return err
	}
	tx.R = new(big.Int).SetBytes(sig[:32])
	tx.S = new(big.Int).SetBytes(sig[32:64])
	tx.V = new(big.Int).SetBytes([]byte{sig[64] + 27})
	tx.from = nil
	return nil
}

// From recovers the 20-byte sender address from the signature.
func (tx *Transaction) From() ([]byte, error) {
	if tx.from != nil {
		return tx.from, nil
	}
	if tx.R == nil || tx.S == nil || tx.V == nil {
		return nil, ErrUnsignedTransaction
	}
	if len(tx.R.Bytes()) > 32 || len(tx.S.Bytes()) > 32 || !tx.V.IsUint64() {
		return nil, ErrInvalidSignature
	}
	v := tx.V.Uint64()
	if v != 27 && v != 28 {
		return nil, ErrInvalidSignature
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, err
	}
	sig := make([]byte, 65)
	copy(sig[32-len(tx.R.Bytes()):32], tx.R.Bytes())
	copy(sig[64-len(tx.S.Bytes()):64], tx.S.Bytes())
	sig[64] = byte(v - 27)
	pubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	tx.from = crypto.PubkeyToAddress(*pubKey).Bytes()
	return tx.from, nil
}
