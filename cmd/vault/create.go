package vault

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tyler-smith/go-bip39"
	"github/keyless/go-connector/internal/util/command"
	"github/keyless/go-connector/internal/wallet/keystore"
	"github/keyless/go-connector/internal/wallet/vault"
)

const (
	accountsFlag = "accounts"
	wordsFlag    = "words"

	decryptionKeyLength = 32
	minPinLength        = 4
)

type createResult struct {
	Mnemonic      string   `json:"mnemonic"`
	DecryptionKey string   `json:"decryptionKey"`
	Vault         string   `json:"vault"`
	Accounts      []string `json:"accounts"`
}

func newCreate() *cobra.Command {
	var accounts, words int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Creates a new local vault",
		Long: `Generates a BIP39 mnemonic and a random decryption key and seals them
into a vault blob protected by a PIN read from the terminal.

The output contains the mnemonic and the decryption key in clear text.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pin, err := command.PromptPassword("PIN: ")
			if err != nil {
				return err
			}
			if len(pin) < minPinLength {
				return errors.Errorf("pin must be at least %d characters", minPinLength)
			}

			confirm, err := command.PromptPassword("Confirm PIN: ")
			if err != nil {
				return err
			}
			if pin != confirm {
				return errors.New("pins do not match")
			}

			res, err := createVault(cmd.Context(), words, accounts, pin)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return errors.Wrap(err, "failed to marshal vault")
			}

			//nolint:forbidigo
			fmt.Println(string(out))

			return nil
		},
	}

	cmd.Flags().IntVar(&accounts, accountsFlag, 1, "Number of accounts to derive")
	cmd.Flags().IntVar(&words, wordsFlag, 12, "Mnemonic length, 12 or 24 words")

	return cmd
}

func createVault(ctx context.Context, words int, accounts int, pin string) (*createResult, error) {
	var bitSize int
	switch words {
	case 12:
		bitSize = 128
	case 24:
		bitSize = 256
	default:
		return nil, errors.Errorf("unsupported mnemonic length %d", words)
	}

	entropy, err := bip39.NewEntropy(bitSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate entropy")
	}

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate mnemonic")
	}

	decryptionKey := make([]byte, decryptionKeyLength)
	if _, err := rand.Read(decryptionKey); err != nil {
		return nil, errors.Wrap(err, "failed to generate decryption key")
	}

	blob, err := vault.Create(mnemonic, decryptionKey, pin, accounts, keystore.DefaultScryptParams())
	if err != nil {
		return nil, err
	}

	keyring, err := vault.OpenKeyring(blob, nil)
	if err != nil {
		return nil, err
	}

	addrs, err := keyring.GetAccounts(ctx, decryptionKey)
	if err != nil {
		return nil, err
	}

	res := &createResult{
		Mnemonic:      mnemonic,
		DecryptionKey: hexutil.Encode(decryptionKey),
		Vault:         blob,
		Accounts:      make([]string, len(addrs)),
	}
	for i, addr := range addrs {
		res.Accounts[i] = addr.Hex()
	}

	return res, nil
}
