package main

import (
	"encoding/hex"
	"fmt"

	"github.com/calehh/treasury-app/crypto"
	"github.com/spf13/cobra"
)

type keyArguments struct {
	Skey string
}

var keyArgs keyArguments

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Create or show a signing key",
	RunE: func(cmd *cobra.Command, args []string) error {
		k, err := crypto.LoadOrGenKey(keyArgs.Skey)
		if err != nil {
			return err
		}
		fmt.Println("pubkey:", hex.EncodeToString(k.PublicKey()))
		fmt.Println("address:", k.Address().Hex())
		return nil
	},
}

type validatorArguments struct {
	Skey string
}

var validatorArgs validatorArguments

var validatorCmd = &cobra.Command{
	Use:   "validator",
	Short: "Show the consensus public key of the node",
	RunE: func(cmd *cobra.Command, args []string) error {
		pk, err := crypto.ValidatorPubKey(validatorArgs.Skey)
		if err != nil {
			return err
		}
		fmt.Println("pubkey:", hex.EncodeToString(pk.Bytes()))
		fmt.Println("address:", pk.Address().String())
		return nil
	},
}

func init() {
	keyCmd.Flags().StringVarP(&keyArgs.Skey, "skeyPath", "s", "./config/treasury_key", "private key path")
	validatorCmd.Flags().StringVarP(&validatorArgs.Skey, "skeyPath", "s", "./config/priv_validator_key.json", "validator key path")
	keyCmd.AddCommand(validatorCmd)
}
