package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/matrixise/amm-tracker/internal/display"
)

var (
	showOwner string
	showJSON  bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Fetch the details once and print them",
	Long:  `Run a single refresh cycle for the configured owner, tokens and pool, print the result and exit.`,
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().StringVar(&showOwner, "owner", "", "owner address (overrides config)")
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print JSON instead of a table")
}

func runShow(cmd *cobra.Command, args []string) error {
	if showOwner != "" && !common.IsHexAddress(showOwner) {
		return fmt.Errorf("invalid --owner address %q", showOwner)
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	owner := a.owner
	if showOwner != "" {
		owner = checksum(showOwner)
	}

	coord := a.newCoordinator()
	defer coord.Close()

	coord.Configure(owner, a.tokens, a.pool)
	coord.Wait()

	snap := coord.Snapshot()
	details := display.Render(snap, a.symbols(), a.cfg.DisplayChars)

	out := cmd.OutOrStdout()
	if showJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(details); err != nil {
			return err
		}
	} else if err := display.WriteText(out, details); err != nil {
		return err
	}

	return snap.Err
}
