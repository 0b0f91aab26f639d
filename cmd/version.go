package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X github.com/cloudsim-go/cloudsim/cmd.Version=...".
var (
	Version  = "unknown"
	Revision = "HEAD"
	BuiltAt  = "now"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(),
				"Version:        %s\nGit hash:       %s\nBuilt:          %s\nGolang version: %s\nOS/Arch:        %s/%s\n",
				Version, Revision, BuiltAt, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
