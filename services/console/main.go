// console is the interactive front end: type a request, read the reply,
// answer y/n to critique and save it.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/forge-ai/jsforge/shared/codegen"
	"github.com/forge-ai/jsforge/shared/config"
	"github.com/forge-ai/jsforge/shared/llm"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if os.Getenv("DEBUG") == "1" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		autoSave   bool
		noCritique bool
		filename   string
		workDir    string
	)

	cmd := &cobra.Command{
		Use:           "console",
		Short:         "Generate JavaScript interactively",
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if workDir != "" {
				cfg.WorkDir = workDir
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			provider, err := llm.New(ctx, cfg)
			if err != nil {
				return err
			}
			ws, err := codegen.NewWorkspace(cfg.WorkDir, cfg.DefaultFilename)
			if err != nil {
				return err
			}

			c := newConsole(codegen.NewAgent(provider, ws), cmd.InOrStdin(), cmd.OutOrStdout())
			c.autoSave = autoSave
			c.critique = !noCritique
			c.filename = filename
			if !cmd.Flags().Changed("filename") {
				c.filename = cfg.DefaultFilename
			}
			err = c.run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&autoSave, "auto-save", false, "save replies that look like JavaScript without asking")
	cmd.Flags().BoolVar(&noCritique, "no-critique", false, "skip the improve question")
	cmd.Flags().StringVar(&filename, "filename", codegen.DefaultFilename, "file name inside the workspace")
	cmd.Flags().StringVar(&workDir, "workdir", "", "workspace directory (overrides WORK_DIR)")
	return cmd
}
