package main

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/blockberries/hostberry/modules/ibc"
	"github.com/blockberries/hostberry/types"
)

var (
	txNode       string
	txSigner     string
	txKeyPath    string
	txSubject    string
	txSubstitute string
)

var txCmd = &cobra.Command{
	Use:   "tx",
	Short: "Build, sign and broadcast transactions",
}

var recoverClientCmd = &cobra.Command{
	Use:   "recover-client",
	Short: "Broadcast a client recovery",
	Long: `Build a client-recovery transaction replacing the expired or frozen
subject client's state with the active substitute's, sign it, and broadcast
it to the node's JSON-RPC endpoint.

Example:
  hostberry tx recover-client \
    --subject-client-id 07-tendermint-0 \
    --substitute-client-id 07-tendermint-1 \
    --signer alice --key alice.key`,
	RunE: runRecoverClient,
}

func init() {
	txCmd.PersistentFlags().StringVar(&txNode, "node", "http://127.0.0.1:26657", "node JSON-RPC endpoint")
	txCmd.PersistentFlags().StringVar(&txSigner, "signer", "", "signer account")
	txCmd.PersistentFlags().StringVar(&txKeyPath, "key", "", "path to an ed25519 private key file")

	recoverClientCmd.Flags().StringVar(&txSubject, "subject-client-id", "", "client to recover")
	recoverClientCmd.Flags().StringVar(&txSubstitute, "substitute-client-id", "", "active client to copy state from")
	_ = recoverClientCmd.MarkFlagRequired("subject-client-id")
	_ = recoverClientCmd.MarkFlagRequired("substitute-client-id")

	txCmd.AddCommand(recoverClientCmd)
}

func runRecoverClient(cmd *cobra.Command, _ []string) error {
	if txSigner == "" {
		return fmt.Errorf("--signer is required")
	}

	msg, err := types.NewMsg(ibc.MsgRecoverClientURL, ibc.MsgRecoverClient{
		SubjectClientID:    txSubject,
		SubstituteClientID: txSubstitute,
	})
	if err != nil {
		return err
	}
	tx := types.Tx{
		Messages: []types.Msg{msg},
		Signer:   txSigner,
	}

	if txKeyPath != "" {
		if err := signTx(&tx, txKeyPath); err != nil {
			return err
		}
	}

	raw, err := tx.Encode()
	if err != nil {
		return fmt.Errorf("encoding transaction: %w", err)
	}
	result, err := broadcastTx(txNode, raw)
	if err != nil {
		return err
	}
	cmd.Println(result)
	return nil
}

// signTx signs the encoded transaction (messages, signer and nonce, with the
// signature field cleared) with the ed25519 key at path.
func signTx(tx *types.Tx, path string) error {
	seed, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading key: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf("key file must hold a %d-byte ed25519 seed", ed25519.SeedSize)
	}
	key := ed25519.NewKeyFromSeed(seed)

	unsigned := *tx
	unsigned.Signature = nil
	data, err := unsigned.Encode()
	if err != nil {
		return fmt.Errorf("encoding for signing: %w", err)
	}
	tx.Signature = ed25519.Sign(key, data)
	return nil
}

// broadcastTx submits the raw transaction via the node's JSON-RPC
// broadcast_tx_sync method, hex-encoded.
func broadcastTx(node string, raw []byte) (string, error) {
	request := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "broadcast_tx_sync",
		"params":  map[string]string{"tx": hex.EncodeToString(raw)},
	}
	body, err := json.Marshal(request)
	if err != nil {
		return "", err
	}
	resp, err := http.Post(node, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("broadcasting to %s: %w", node, err)
	}
	defer resp.Body.Close()

	var parsed struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("broadcast rejected: %s (code %d)", parsed.Error.Message, parsed.Error.Code)
	}
	return string(parsed.Result), nil
}
