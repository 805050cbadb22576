package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chewangneko/qqcallback/cmd/qqbot/internal"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Aliases: []string{"v"},
		Short:   "Show version information",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "qqbot %s\n", internal.FormatVersion())
			build, goVer := internal.FormatBuildInfo()
			if build != "" {
				fmt.Fprintf(out, "  Build time: %s\n", build)
			}
			fmt.Fprintf(out, "  Go version: %s\n", goVer)
		},
	}
}
