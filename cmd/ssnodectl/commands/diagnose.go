package commands

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ssnode/cluster/internal/config"
)

func diagnoseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagnose <config-file>",
		Short: "Load and validate an ssnoded configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("node.listen_addr:   %s\n", cfg.Node.ListenAddr)
			fmt.Printf("metrics.addr:       %s%s\n", cfg.Metrics.Addr, cfg.Metrics.Path)
			fmt.Printf("admin.listen_addr:  %s\n", cfg.Admin.ListenAddr)
			fmt.Printf("log:                %s/%s\n", cfg.Log.Level, cfg.Log.Format)
			fmt.Printf("peers (%d):\n", len(cfg.Peers))
			for _, p := range cfg.Peers {
				fmt.Printf("  - %s @ %s\n", p.NodeIDHex, p.Addr)
			}
			return nil
		},
	}
	return cmd
}

// migrationIDCmd prints a fresh migration id in both UUID and the zero-padded
// 32-byte hex form ssnoded's admin listener assigns internally to every
// servers-set-change session it starts, so an operator scripting a
// "setchange" admin command can label the migration consistently.
func migrationIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migration-id",
		Short: "Generate a fresh migration id for a servers-set-change",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			id := uuid.New()
			var padded [32]byte
			copy(padded[:], id[:])
			fmt.Printf("uuid: %s\n", id)
			fmt.Printf("hex:  %x\n", padded)
		},
	}
}
