package app

import (
	"github.com/spf13/cobra"

	"github.com/0xmilen/solsentry/internal/cli"
)

func BuildRoot() *cobra.Command {
	root := &cobra.Command{Use: "solsentry", Short: "Pattern-based smart contract vulnerability detector"}
	cli.AddCommands(root)
	return root
}
