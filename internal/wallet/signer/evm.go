package signer

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github/chapool/go-signer/internal/hardware"
)

// NewEIP1559Payload builds the transaction payload of an EIP-1559 request
func NewEIP1559Payload(req *EVMTransactionRequest) (*hardware.SigningPayload, error) {
	if req == nil {
		return nil, errors.New("transaction request must not be nil")
	}
	if !common.IsHexAddress(req.To) {
		return nil, errors.Errorf("invalid recipient address %q", req.To)
	}
	if req.ChainID <= 0 {
		return nil, errors.Errorf("invalid chain id %d", req.ChainID)
	}

	// Parse value
	const base10 = 10
	value, ok := new(big.Int).SetString(orZero(req.Value), base10)
	if !ok {
		return nil, errors.New("invalid value format")
	}

	// Parse max fee per gas
	maxFeePerGas, ok := new(big.Int).SetString(req.MaxFeePerGas, base10)
	if !ok {
		return nil, errors.New("invalid maxFeePerGas format")
	}

	// Parse max priority fee per gas
	maxPriorityFeePerGas, ok := new(big.Int).SetString(req.MaxPriorityFeePerGas, base10)
	if !ok {
		return nil, errors.New("invalid maxPriorityFeePerGas format")
	}

	toAddress := common.HexToAddress(req.To)
	chainID := big.NewInt(req.ChainID)

	//nolint:varnamelen // tx is a common abbreviation for transaction
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     req.Nonce,
		GasTipCap: maxPriorityFeePerGas,
		GasFeeCap: maxFeePerGas,
		Gas:       req.GasLimit,
		To:        &toAddress,
		Value:     value,
		Data:      req.Data,
	})

	return &hardware.SigningPayload{
		Kind:        hardware.PayloadTransaction,
		Transaction: tx,
		ChainID:     chainID,
	}, nil
}

func orZero(value string) string {
	if value == "" {
		return "0"
	}
	return value
}
