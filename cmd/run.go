package cmd

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cloudsim-go/cloudsim/sim/trace"
	"github.com/cloudsim-go/cloudsim/sim/workload"
)

func newRunCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run a scenario and print its report",
		Args:    cobra.NoArgs,
		PreRunE: bindFlags(v),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScenario(cmd.OutOrStdout(), v)
		},
	}
	cmd.Flags().String("scenario", "", "Path to the scenario YAML file")
	cmd.Flags().Int64("seed", 0, "Seed for random cloudlet generation (overrides the scenario)")
	cmd.Flags().Float64("terminate-at", 0, "Stop the simulation at this clock (overrides the scenario, 0 = run until idle)")
	cmd.Flags().Bool("trace", false, "Record broker decisions and print a summary")
	cmd.Flags().String("output", "", "Also write the report as JSON to this path")
	return cmd
}

// loadScenario reads the scenario named by the scenario flag and applies the
// command-line overrides that were explicitly given.
func loadScenario(v *viper.Viper) (*workload.Scenario, error) {
	path := v.GetString("scenario")
	if path == "" {
		return nil, errors.New("--scenario is required")
	}
	sc, err := workload.LoadScenario(path)
	if err != nil {
		return nil, err
	}
	if v.IsSet("seed") {
		sc.Seed = v.GetInt64("seed")
	}
	if v.IsSet("terminate-at") {
		sc.TerminateAt = v.GetFloat64("terminate-at")
	}
	if v.GetBool("trace") {
		sc.Trace = string(trace.TraceLevelDecisions)
	}
	return sc, nil
}

func runScenario(w io.Writer, v *viper.Viper) error {
	sc, err := loadScenario(v)
	if err != nil {
		return err
	}
	r, err := workload.Build(sc, nil)
	if err != nil {
		return err
	}

	logrus.Infof("Starting scenario %q with seed %d, %d datacenters, %d brokers",
		sc.Name, sc.Seed, len(sc.Datacenters), len(sc.Brokers))
	startTime := time.Now()
	rep := r.Execute()
	logrus.Infof("Simulation complete in %s", time.Since(startTime))

	rep.Print(w)
	if out := v.GetString("output"); out != "" {
		return rep.SaveJSON(out)
	}
	return nil
}
