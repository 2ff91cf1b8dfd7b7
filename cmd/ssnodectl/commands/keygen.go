package commands

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssnode/cluster/internal/identity"
)

func keygenCmd() *cobra.Command {
	var seedHex string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an ed25519 node identity for a config file",
		Long: "keygen prints a seed_hex/node_id_hex/address_hex triple suitable " +
			"for a node{} or peers[] block in an ssnoded configuration file. " +
			"Without --seed a fresh random seed is generated; with --seed the " +
			"identity is re-derived deterministically, to confirm a config's " +
			"node_id_hex still matches its seed_hex.",
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			var seed [ed25519.SeedSize]byte

			if seedHex == "" {
				if _, err := rand.Read(seed[:]); err != nil {
					return fmt.Errorf("generate seed: %w", err)
				}
			} else {
				raw, err := hex.DecodeString(seedHex)
				if err != nil {
					return fmt.Errorf("decode --seed: %w", err)
				}
				if len(raw) != ed25519.SeedSize {
					return fmt.Errorf("--seed must decode to %d bytes, got %d", ed25519.SeedSize, len(raw))
				}
				copy(seed[:], raw)
			}

			kp := identity.FromSeed(seed)
			fmt.Printf("seed_hex:    %s\n", hex.EncodeToString(seed[:]))
			fmt.Printf("node_id_hex: %s\n", kp.NodeID().String())
			fmt.Printf("address_hex: %s\n", kp.Address().String())
			return nil
		},
	}

	cmd.Flags().StringVar(&seedHex, "seed", "", "hex-encoded 32-byte seed to re-derive an identity from, instead of generating one")
	return cmd
}
