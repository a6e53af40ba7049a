package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/entangle/internal/modules/quantum"
	"github.com/aristath/entangle/pkg/logger"
)

// app carries state shared by every subcommand
type app struct {
	out       io.Writer
	log       zerolog.Logger
	evaluator *quantum.Evaluator

	logLevel string
	lenient  bool

	state   string
	product []float64
	a, b    quantum.Orientation
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	rootCmd := &cobra.Command{
		Use:           "bellctl",
		Short:         "Evaluate two-qubit measurement statistics and the CHSH inequality",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.log = logger.New(logger.Config{
				Level:   a.logLevel,
				Pretty:  true,
				Output:  os.Stderr,
				Service: "bellctl",
			})

			opts := quantum.DefaultOptions()
			opts.Strict = !a.lenient
			// One-shot process: nothing to memoise
			opts.CacheSize = 0

			evaluator, err := quantum.NewEvaluator(opts, a.log)
			if err != nil {
				return err
			}
			a.evaluator = evaluator
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.evaluator != nil {
				a.evaluator.Close()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&a.lenient, "lenient", false, "skip state and observable validation")

	rootCmd.AddCommand(
		a.statesCmd(),
		a.probabilitiesCmd(),
		a.expectationCmd(),
		a.chshCmd(),
		a.simulateCmd(),
		a.gridCmd(),
	)
	return rootCmd
}

func (a *app) addStateFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&a.state, "state", string(quantum.StatePhiPlus), "catalog state name or symbol")
	cmd.Flags().Float64SliceVar(&a.product, "product", nil,
		"separable state as theta_a,phi_a,theta_b,phi_b (overrides --state)")
}

func (a *app) addAngleFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&a.a.Theta, "theta-a", 0, "Alice polar angle (radians)")
	cmd.Flags().Float64Var(&a.a.Phi, "phi-a", 0, "Alice azimuthal angle (radians)")
	cmd.Flags().Float64Var(&a.b.Theta, "theta-b", 0, "Bob polar angle (radians)")
	cmd.Flags().Float64Var(&a.b.Phi, "phi-b", 0, "Bob azimuthal angle (radians)")
}

func (a *app) stateSpec() (quantum.StateSpec, error) {
	if len(a.product) > 0 {
		if len(a.product) != 4 {
			return quantum.StateSpec{}, fmt.Errorf("--product needs 4 values, got %d", len(a.product))
		}
		return quantum.ProductOf(
			quantum.Orientation{Theta: a.product[0], Phi: a.product[1]},
			quantum.Orientation{Theta: a.product[2], Phi: a.product[3]},
		), nil
	}
	name, err := quantum.ParseStateName(a.state)
	if err != nil {
		return quantum.StateSpec{}, err
	}
	return quantum.CatalogState(name), nil
}

func (a *app) print(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) statesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "states",
		Short: "List the catalog of two-qubit states",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			type entry struct {
				Name      quantum.StateName `json:"name"`
				Symbol    string            `json:"symbol"`
				Label     string            `json:"label"`
				Entangled bool              `json:"entangled"`
			}
			var entries []entry
			for _, e := range quantum.Catalog() {
				entries = append(entries, entry{Name: e.Name, Symbol: e.Symbol, Label: e.Label, Entangled: e.Entangled})
			}
			return a.print(entries)
		},
	}
}

func (a *app) probabilitiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probabilities",
		Short: "Joint outcome probabilities for one pair of orientations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := a.stateSpec()
			if err != nil {
				return err
			}
			probs, err := a.evaluator.Probabilities(spec, a.a, a.b)
			if err != nil {
				return err
			}
			return a.print(map[string]interface{}{
				"state":         spec.String(),
				"a":             a.a,
				"b":             a.b,
				"probabilities": probs,
			})
		},
	}
	a.addStateFlags(cmd)
	a.addAngleFlags(cmd)
	return cmd
}

func (a *app) expectationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expectation",
		Short: "Correlation E(a,b) for one pair of orientations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := a.stateSpec()
			if err != nil {
				return err
			}
			e, err := a.evaluator.Expectation(spec, a.a, a.b)
			if err != nil {
				return err
			}
			return a.print(map[string]interface{}{
				"state":       spec.String(),
				"a":           a.a,
				"b":           a.b,
				"expectation": e,
			})
		},
	}
	a.addStateFlags(cmd)
	a.addAngleFlags(cmd)
	return cmd
}

func (a *app) chshCmd() *cobra.Command {
	var reference bool
	cmd := &cobra.Command{
		Use:   "chsh",
		Short: "CHSH value S with primed settings rotated by ±π/2",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := a.stateSpec()
			if err != nil {
				return err
			}
			angles := quantum.CanonicalAngles(a.a, a.b)
			if reference {
				angles = quantum.ReferenceAngles()
			}
			s, err := a.evaluator.CHSH(spec, angles)
			if err != nil {
				return err
			}
			return a.print(map[string]interface{}{
				"state":              spec.String(),
				"angles":             angles,
				"s":                  s,
				"violates_classical": quantum.ViolatesClassicalBound(s),
				"classical_bound":    quantum.ClassicalBound,
				"tsirelson_bound":    quantum.TsirelsonBound,
			})
		},
	}
	a.addStateFlags(cmd)
	a.addAngleFlags(cmd)
	cmd.Flags().BoolVar(&reference, "reference", false, "use the maximal-violation settings a=0, a'=π/2, b=π/4, b'=3π/4")
	return cmd
}

func (a *app) simulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Probabilities and canonical CHSH in one call",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := a.stateSpec()
			if err != nil {
				return err
			}
			sim, err := a.evaluator.Simulate(spec, a.a, a.b)
			if err != nil {
				return err
			}
			return a.print(map[string]interface{}{
				"state":      spec.String(),
				"simulation": sim,
			})
		},
	}
	a.addStateFlags(cmd)
	a.addAngleFlags(cmd)
	return cmd
}

func (a *app) gridCmd() *cobra.Command {
	var resolution int
	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Correlation E over a theta_a by theta_b grid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := a.stateSpec()
			if err != nil {
				return err
			}
			grid, err := a.evaluator.Grid(spec, resolution, a.a.Phi, a.b.Phi)
			if err != nil {
				return err
			}
			return a.print(map[string]interface{}{
				"state":      spec.String(),
				"resolution": resolution,
				"rows":       quantum.GridRows(grid),
				"summary":    quantum.SummarizeGrid(grid),
			})
		},
	}
	a.addStateFlags(cmd)
	cmd.Flags().IntVar(&resolution, "resolution", 32, "cells per axis")
	cmd.Flags().Float64Var(&a.a.Phi, "phi-a", 0, "Alice azimuthal angle (radians)")
	cmd.Flags().Float64Var(&a.b.Phi, "phi-b", 0, "Bob azimuthal angle (radians)")
	return cmd
}
