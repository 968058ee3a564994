package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	"swarmdyn/internal/genome"
)

var (
	evolveInPath  string
	evolveOutPath string
	evolveSeed    int64
	evolveArchive bool
)

var evolveCmd = &cobra.Command{
	Use:   "evolve",
	Short: "Mutate a genome deterministically",
	Long: `Reads a genome JSON file, applies the seeded mutation operator and
writes the child. The same seed over the same parent always produces the
same child genome id.`,
	RunE: runEvolve,
}

func init() {
	evolveCmd.Flags().StringVar(&evolveInPath, "in", "", "parent genome JSON file (required)")
	evolveCmd.Flags().StringVar(&evolveOutPath, "out", "", "child genome output file (defaults to stdout)")
	evolveCmd.Flags().Int64Var(&evolveSeed, "seed", 0, "mutation seed")
	evolveCmd.Flags().BoolVar(&evolveArchive, "archive", false, "also record parent and child in the genome archive")
	_ = evolveCmd.MarkFlagRequired("in")
}

func runEvolve(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(evolveInPath)
	if err != nil {
		return fmt.Errorf("failed to read parent genome: %w", err)
	}
	var parent genome.Genome
	if err := json.Unmarshal(data, &parent); err != nil {
		return fmt.Errorf("malformed parent genome: %w", err)
	}

	rng := rand.New(rand.NewSource(evolveSeed))
	child, err := genome.Mutate(parent, rng, cfg.Mutation.Strength)
	if err != nil {
		return err
	}

	if evolveArchive {
		archive, err := genome.NewArchive(cfg.Mutation.ArchiveDir)
		if err != nil {
			return err
		}
		if err := archive.Save(parent); err != nil {
			return err
		}
		if err := archive.Save(child); err != nil {
			return err
		}
	}

	out, err := json.MarshalIndent(child, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal child genome: %w", err)
	}
	if evolveOutPath == "" {
		fmt.Println(string(out))
		return nil
	}
	if err := os.WriteFile(evolveOutPath, out, 0o644); err != nil {
		return fmt.Errorf("failed to write child genome: %w", err)
	}
	fmt.Printf("child %s written to %s\n", child.GenomeID, evolveOutPath)
	return nil
}
