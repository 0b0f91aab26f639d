package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newValidateCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "validate",
		Short:   "Check a scenario file without running it",
		Args:    cobra.NoArgs,
		PreRunE: bindFlags(v),
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc, err := loadScenario(v)
			if err != nil {
				return err
			}
			if err := sc.Validate(); err != nil {
				return err
			}
			hosts, vms, cloudlets := 0, 0, 0
			for _, d := range sc.Datacenters {
				for _, h := range d.Hosts {
					hosts += max(h.Count, 1)
				}
			}
			for _, b := range sc.Brokers {
				for _, vm := range b.VMs {
					vms += max(vm.Count, 1)
				}
				for _, cl := range b.Cloudlets {
					cloudlets += max(cl.Count, 1)
				}
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "scenario ok: %d datacenters (%d hosts), %d brokers (%d VMs, %d cloudlets)\n",
				len(sc.Datacenters), hosts, len(sc.Brokers), vms, cloudlets)
			return nil
		},
	}
	cmd.Flags().String("scenario", "", "Path to the scenario YAML file")
	return cmd
}
