package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chewangneko/qqcallback/cmd/qqbot/internal"
	"github.com/chewangneko/qqcallback/cmd/qqbot/internal/db"
	"github.com/chewangneko/qqcallback/cmd/qqbot/internal/serve"
	"github.com/chewangneko/qqcallback/cmd/qqbot/internal/version"
)

func NewQQBotCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:     "qqbot",
		Short:   fmt.Sprintf("qqbot - QQ command bot v%s", internal.GetVersion()),
		Example: "qqbot serve --config ~/.qqbot/config.json",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			internal.SetConfigPath(configPath)
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Config file path (default: ~/.qqbot/config.json)")

	cmd.AddCommand(
		serve.NewServeCommand(),
		db.NewDBCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewQQBotCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
