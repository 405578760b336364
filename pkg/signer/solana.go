package signer

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"omniswap/pkg/client"
	"omniswap/pkg/types"
)

// SolanaSigner signs and broadcasts transactions on Solana.
type SolanaSigner struct {
	rpcClient  *rpc.Client
	privateKey solana.PrivateKey
	publicKey  solana.PublicKey
}

// NewSolanaSigner connects to rpcURL using a base58-encoded private key.
func NewSolanaSigner(rpcURL, privateKeyBase58 string) (*SolanaSigner, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("RPC URL not configured for Solana signer")
	}
	if privateKeyBase58 == "" {
		return nil, fmt.Errorf("private key not configured for Solana signer")
	}

	privateKey, err := solana.PrivateKeyFromBase58(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &SolanaSigner{
		rpcClient:  rpc.New(rpcURL),
		privateKey: privateKey,
		publicKey:  privateKey.PublicKey(),
	}, nil
}

func (s *SolanaSigner) Family() types.ChainFamily { return types.FamilySolana }

func (s *SolanaSigner) Address() string { return s.publicKey.String() }

// SignAndSend deserializes the provider-built transaction (base64 in
// payload.Data), re-signs it with a fresh blockhash and broadcasts it.
func (s *SolanaSigner) SignAndSend(ctx context.Context, payload *client.TxPayload) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(payload.Data)
	if err != nil {
		return "", fmt.Errorf("invalid transaction payload: %w", err)
	}

	tx, err := solana.TransactionFromBytes(raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode transaction: %w", err)
	}

	recent, err := s.rpcClient.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("failed to get recent blockhash: %w", err)
	}
	tx.Message.RecentBlockhash = recent.Value.Blockhash

	tx.Signatures = nil
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.publicKey) {
			return &s.privateKey
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	sig, err := s.rpcClient.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}
	return sig.String(), nil
}

// SignMessage signs payload with the wallet key.
func (s *SolanaSigner) SignMessage(ctx context.Context, payload []byte) ([]byte, error) {
	sig, err := s.privateKey.Sign(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}
	return sig[:], nil
}

// TxStatus checks the signature's confirmation status.
func (s *SolanaSigner) TxStatus(ctx context.Context, txHash string) (types.TxReceiptStatus, error) {
	sig, err := solana.SignatureFromBase58(txHash)
	if err != nil {
		return types.TxPending, fmt.Errorf("invalid transaction signature: %w", err)
	}

	statuses, err := s.rpcClient.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return types.TxPending, fmt.Errorf("failed to get signature status: %w", err)
	}
	if len(statuses.Value) == 0 || statuses.Value[0] == nil {
		return types.TxPending, nil
	}

	st := statuses.Value[0]
	if st.Err != nil {
		return types.TxReverted, nil
	}
	if st.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
		st.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
		return types.TxConfirmed, nil
	}
	return types.TxPending, nil
}
