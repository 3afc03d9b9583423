// Command nutmeg is a thin CLI around the hybrid MIP/CP engine: a solve
// subcommand that builds one of the bundled example models (S1-S6) and
// minimises it, and a write-lp subcommand that dumps the assembled MIP
// relaxation for debugging.
package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ed-lam/nutmeg/nutmeg"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "nutmeg",
	Short: "Hybrid MIP/CP solver CLI.",
}

func init() {
	rootCmd.AddCommand(solveCmd, writeLPCmd)

	for _, c := range []*cobra.Command{solveCmd, writeLPCmd} {
		c.Flags().String("model", "s1", "example model: s1-s6")
		c.Flags().String("method", "bc", "solve method: mip, cp, bc, lbbd")
		c.Flags().Duration("time-limit", 0, "wall-clock time limit (0 = unlimited)")
		c.Flags().Bool("verbose", false, "enable debug logging")
		c.Flags().Bool("minimize-cuts", false, "minimize nogoods before emitting them")
	}
}

var exampleBuilders = map[string]func(nutmeg.Method) (*nutmeg.Model, nutmeg.I){
	"s1": nutmeg.ExampleTrivialFix,
	"s2": nutmeg.ExampleImmediateInfeasibility,
	"s3": nutmeg.ExampleAssignmentScheduling,
	"s4": nutmeg.ExampleAllDifferentForcesValue,
	"s5": nutmeg.ExampleCumulativeInfeasibility,
	"s6": nutmeg.ExampleLBBDConvergence,
}

var methodNames = map[string]nutmeg.Method{
	"mip":  nutmeg.MethodMIP,
	"cp":   nutmeg.MethodCP,
	"bc":   nutmeg.MethodBC,
	"lbbd": nutmeg.MethodLBBD,
}

func buildModel(cmd *cobra.Command) (*nutmeg.Model, nutmeg.I, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if verbose {
		log.SetLevel(log.DebugLevel)
	}

	modelName, _ := cmd.Flags().GetString("model")
	builder, ok := exampleBuilders[modelName]
	if !ok {
		return nil, 0, fmt.Errorf("unknown model %q (want s1-s6)", modelName)
	}

	methodName, _ := cmd.Flags().GetString("method")
	method, ok := methodNames[methodName]
	if !ok {
		return nil, 0, fmt.Errorf("unknown method %q (want mip, cp, bc, lbbd)", methodName)
	}

	m, obj := builder(method)
	m.SetVerbose(verbose)

	if mc, _ := cmd.Flags().GetBool("minimize-cuts"); mc {
		m.SetMinimizeCuts(true)
	}

	return m, obj, nil
}

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Build and solve one of the bundled example models.",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, obj, err := buildModel(cmd)
		if err != nil {
			return err
		}

		timeLimit, _ := cmd.Flags().GetDuration("time-limit")
		status := m.Minimize(obj, timeLimit)

		fmt.Printf("status:   %s\n", status)
		fmt.Printf("primal:   %g\n", m.GetPrimalBound())
		fmt.Printf("dual:     %g\n", m.GetDualBound())
		fmt.Printf("nodes:    %d\n", m.GetNodes())
		fmt.Printf("runtime:  %s\n", m.GetRuntime())

		if status == nutmeg.StatusOptimal || status == nutmeg.StatusFeasible {
			fmt.Printf("obj(x):   %g\n", m.GetSol(obj))
		}
		return nil
	},
}

var writeLPCmd = &cobra.Command{
	Use:   "write-lp",
	Short: "Dump the assembled MIP relaxation of an example model.",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, _, err := buildModel(cmd)
		if err != nil {
			return err
		}
		return m.WriteLP(os.Stdout)
	},
}
