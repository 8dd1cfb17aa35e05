package cli

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/MolScore/internal/domain/likelihood"
	"github.com/turtacn/MolScore/pkg/types/molecule"
)

type scoreOptions struct {
	modelKind string
	radius    int
	modelPath string
	inputPath string
}

// scoredMolecule is one line of score output.
type scoredMolecule struct {
	SMILES string   `json:"smiles"`
	Score  *float64 `json:"score"` // null when scoring failed
}

func newScoreCommand(root *RootOptions) *cobra.Command {
	opts := &scoreOptions{}

	cmd := &cobra.Command{
		Use:   "score [SMILES...]",
		Short: "Score molecules under a likelihood model",
		Long:  "Scores the SMILES given as arguments, or one per line from --input.\nWithout --model-file the bundled pretrained model for the chosen kind\nand radius is used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd, root, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.modelKind, "model", "m", "AtomLL", "model kind (AtomLL, MolLL)")
	f.IntVarP(&opts.radius, "radius", "r", likelihood.DefaultParams().Radius, "pretrained model radius")
	f.StringVar(&opts.modelPath, "model-file", "", "trained model document (overrides the pretrained model)")
	f.StringVarP(&opts.inputPath, "input", "i", "", "SMILES file, one molecule per line (- for stdin)")

	return cmd
}

func runScore(cmd *cobra.Command, root *RootOptions, opts *scoreOptions, args []string) error {
	kind, err := likelihood.ParseModelKind(opts.modelKind)
	if err != nil {
		return err
	}

	model, err := resolveModel(kind, opts)
	if err != nil {
		return err
	}

	mols, err := collectMolecules(cmd.InOrStdin(), opts.inputPath, args)
	if err != nil {
		return err
	}

	scores := model.CalculateLLs(mols)
	results := make([]scoredMolecule, len(mols))
	for i := range mols {
		results[i] = scoredMolecule{SMILES: mols[i].SMILES}
		if !math.IsNaN(scores[i]) {
			score := scores[i]
			results[i].Score = &score
		}
	}

	return printResult(cmd.OutOrStdout(), root.OutputFormat, results, func(w io.Writer) {
		for _, r := range results {
			if r.Score == nil {
				fmt.Fprintf(w, "%s\tfailed\n", r.SMILES)
				continue
			}
			fmt.Fprintf(w, "%s\t%.6f\n", r.SMILES, *r.Score)
		}
	})
}

func resolveModel(kind likelihood.ModelKind, opts *scoreOptions) (likelihood.Model, error) {
	if opts.modelPath == "" {
		return likelihood.Pretrained(kind, opts.radius)
	}

	f, err := os.Open(opts.modelPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", opts.modelPath, err)
	}
	defer f.Close()
	return likelihood.LoadModelKind(f, kind)
}

func collectMolecules(stdin io.Reader, inputPath string, args []string) ([]molecule.Molecule, error) {
	if inputPath != "" {
		return readSMILESFile(stdin, inputPath)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("no molecules given: pass SMILES arguments or --input")
	}
	return molecule.FromSMILES(args), nil
}
