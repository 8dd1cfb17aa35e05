package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/MolScore/internal/domain/likelihood"
	"github.com/turtacn/MolScore/pkg/types/molecule"
)

type trainOptions struct {
	modelKind         string
	radius            int
	pseudoCount       float64
	estimatedKeyspace float64
	alpha             float64
	inputPath         string
	outputPath        string
}

func newTrainCommand(root *RootOptions) *cobra.Command {
	opts := &trainOptions{}

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a likelihood model from a SMILES file",
		Long:  "Reads one SMILES per line from the input file (or stdin with -i -),\nfits the selected model, and writes the model document as JSON.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTrain(cmd, root, opts)
		},
	}

	defaults := likelihood.DefaultParams()
	f := cmd.Flags()
	f.StringVarP(&opts.modelKind, "model", "m", "AtomLL", "model kind (AtomLL, MolLL)")
	f.IntVarP(&opts.radius, "radius", "r", defaults.Radius, "Morgan environment radius")
	f.Float64Var(&opts.pseudoCount, "pseudo-count", defaults.PseudoCount, "Laplace smoothing pseudo-count")
	f.Float64Var(&opts.estimatedKeyspace, "estimated-keyspace", defaults.EstimatedKeyspace, "fixed keyspace estimate (0 = observed vocabulary)")
	f.Float64Var(&opts.alpha, "alpha", defaults.Alpha, "atom-count normalization exponent")
	f.StringVarP(&opts.inputPath, "input", "i", "", "SMILES file, one molecule per line (- for stdin)")
	f.StringVarP(&opts.outputPath, "output-file", "f", "", "path for the trained model document")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output-file")

	return cmd
}

func runTrain(cmd *cobra.Command, root *RootOptions, opts *trainOptions) error {
	kind, err := likelihood.ParseModelKind(opts.modelKind)
	if err != nil {
		return err
	}

	params := likelihood.Params{
		Radius:            opts.radius,
		PseudoCount:       opts.pseudoCount,
		EstimatedKeyspace: opts.estimatedKeyspace,
		Alpha:             opts.alpha,
	}

	var model likelihood.Model
	switch kind {
	case likelihood.KindAtomLL:
		model, err = likelihood.NewAtomLL(params)
	case likelihood.KindMolLL:
		model, err = likelihood.NewMolLL(params)
	default:
		return fmt.Errorf("model kind %q cannot be trained", kind)
	}
	if err != nil {
		return err
	}

	mols, err := readSMILESFile(cmd.InOrStdin(), opts.inputPath)
	if err != nil {
		return err
	}

	report, err := model.AnalyzeDataset(mols)
	if err != nil {
		return err
	}

	out, err := os.Create(opts.outputPath)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", opts.outputPath, err)
	}
	defer out.Close()
	if err := model.Save(out); err != nil {
		return err
	}

	return printResult(cmd.OutOrStdout(), root.OutputFormat, report, func(w io.Writer) {
		fmt.Fprintf(w, "trained %s (radius %d): %d/%d molecules accepted, %d distinct keys\n",
			kind, params.Radius, report.MoleculesAccepted, report.MoleculesTotal, report.VocabularySize)
		for _, skip := range report.Skipped {
			fmt.Fprintf(w, "  skipped %q: %s\n", skip.SMILES, skip.Reason)
		}
		fmt.Fprintf(w, "model written to %s\n", opts.outputPath)
	})
}

// readSMILESFile reads one SMILES per line; blank lines and #-comments are
// skipped, and an optional whitespace-separated name after the SMILES is
// preserved.
func readSMILESFile(stdin io.Reader, path string) ([]molecule.Molecule, error) {
	var r io.Reader
	if path == "-" {
		r = stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("cannot open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	var mols []molecule.Molecule
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		mol := molecule.Molecule{SMILES: fields[0]}
		if len(fields) > 1 {
			mol.Name = strings.Join(fields[1:], " ")
		}
		mols = append(mols, mol)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(mols) == 0 {
		return nil, fmt.Errorf("no molecules found in %s", path)
	}
	return mols, nil
}
