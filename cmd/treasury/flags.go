package main

import "github.com/spf13/cobra"

const (
	FlagHome      = "home"
	FlagChainID   = "chain-id"
	FlagOverwrite = "overwrite"
)

func urlFlag(cmd *cobra.Command, url *string) {
	cmd.PersistentFlags().StringVarP(url, "url", "u", "http://127.0.0.1:26657", "treasury node rpc url")
}
