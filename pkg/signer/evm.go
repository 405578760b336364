package signer

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"omniswap/pkg/client"
	"omniswap/pkg/types"
)

const erc20AllowanceABI = `[{"constant":true,"inputs":[{"name":"_owner","type":"address"},{"name":"_spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"}]`

// EVMSigner signs and broadcasts transactions on an EVM chain.
type EVMSigner struct {
	chainID    *big.Int
	ethClient  *ethclient.Client
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewEVMSigner connects to rpcURL and derives the sender address from
// privateKeyHex.
func NewEVMSigner(rpcURL, privateKeyHex string, chainID int64) (*EVMSigner, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("RPC URL not configured for EVM signer")
	}
	if privateKeyHex == "" {
		return nil, fmt.Errorf("private key not configured for EVM signer")
	}

	ethClient, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to derive public key")
	}

	return &EVMSigner{
		chainID:    big.NewInt(chainID),
		ethClient:  ethClient,
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(*publicKey),
	}, nil
}

func (s *EVMSigner) Family() types.ChainFamily { return types.FamilyEVM }

func (s *EVMSigner) Address() string { return s.address.Hex() }

// SignAndSend signs the aggregator-built payload and broadcasts it.
func (s *EVMSigner) SignAndSend(ctx context.Context, payload *client.TxPayload) (string, error) {
	if !common.IsHexAddress(payload.To) {
		return "", fmt.Errorf("invalid destination address: %s", payload.To)
	}
	to := common.HexToAddress(payload.To)

	nonce, err := s.ethClient.PendingNonceAt(ctx, s.address)
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice := new(big.Int)
	if payload.GasPrice.IsPositive() {
		gasPrice.SetString(payload.GasPrice.String(), 10)
	} else {
		gasPrice, err = s.ethClient.SuggestGasPrice(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to get gas price: %w", err)
		}
	}

	value := new(big.Int)
	if payload.Value.IsPositive() {
		value.SetString(payload.Value.Truncate(0).String(), 10)
	}

	data, err := hex.DecodeString(strings.TrimPrefix(payload.Data, "0x"))
	if err != nil {
		return "", fmt.Errorf("invalid call data: %w", err)
	}

	gasLimit := uint64(250000)
	if payload.Gas.IsPositive() {
		gasLimit = uint64(payload.Gas.Truncate(0).IntPart())
	}

	tx := ethtypes.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)
	signedTx, err := ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(s.chainID), s.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := s.ethClient.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}
	return signedTx.Hash().Hex(), nil
}

// SignMessage signs payload with the Ethereum personal-message prefix.
func (s *EVMSigner) SignMessage(ctx context.Context, payload []byte) ([]byte, error) {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(payload), payload)
	hash := crypto.Keccak256Hash([]byte(prefixed))
	sig, err := crypto.Sign(hash.Bytes(), s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}
	return sig, nil
}

// TxStatus checks the transaction receipt. A missing receipt means the
// transaction is still pending.
func (s *EVMSigner) TxStatus(ctx context.Context, txHash string) (types.TxReceiptStatus, error) {
	receipt, err := s.ethClient.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return types.TxPending, nil
		}
		return types.TxPending, fmt.Errorf("failed to get transaction receipt: %w", err)
	}
	if receipt.Status == ethtypes.ReceiptStatusSuccessful {
		return types.TxConfirmed, nil
	}
	return types.TxReverted, nil
}

// Allowance reads the ERC-20 allowance granted to spender.
func (s *EVMSigner) Allowance(ctx context.Context, tokenAddr, spender string) (string, error) {
	if !common.IsHexAddress(tokenAddr) {
		return "", fmt.Errorf("invalid token contract address: %s", tokenAddr)
	}
	if !common.IsHexAddress(spender) {
		return "", fmt.Errorf("invalid spender address: %s", spender)
	}

	parsedABI, err := abi.JSON(strings.NewReader(erc20AllowanceABI))
	if err != nil {
		return "", fmt.Errorf("failed to parse allowance ABI: %w", err)
	}

	data, err := parsedABI.Pack("allowance", s.address, common.HexToAddress(spender))
	if err != nil {
		return "", fmt.Errorf("failed to pack allowance data: %w", err)
	}

	token := common.HexToAddress(tokenAddr)
	msg := ethereum.CallMsg{From: s.address, To: &token, Data: data}
	result, err := s.ethClient.CallContract(ctx, msg, nil)
	if err != nil {
		return "", fmt.Errorf("failed to call allowance: %w", err)
	}

	allowance := new(big.Int).SetBytes(result)
	return allowance.String(), nil
}

// Close releases the RPC connection.
func (s *EVMSigner) Close() {
	if s.ethClient != nil {
		s.ethClient.Close()
	}
}
