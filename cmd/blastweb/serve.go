package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/CZERTAINLY/blastweb/internal/job"
	"github.com/CZERTAINLY/blastweb/internal/proc"
	"github.com/CZERTAINLY/blastweb/internal/service"
	"github.com/CZERTAINLY/blastweb/internal/web"

	"github.com/spf13/cobra"
)

var flagListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve runs the web interface",
	RunE:  doServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagListen, "listen", "", "address to listen on, overrides server.listen")
}

func doServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if flagListen != "" {
		config.Server.Listen = flagListen
	}

	jobCfg, err := job.ConfigFromModel(config.Blast)
	if err != nil {
		return err
	}
	exec := proc.NewRunner().WithStderrFunc(proc.DebugStderr)
	runner := job.NewRunner(jobCfg, exec)

	store := web.NewStore()
	handler, err := web.New(store, newDetector(), runner, config.Server.MaxUploadMB)
	if err != nil {
		return fmt.Errorf("initializing web interface: %w", err)
	}

	svc, err := service.New(ctx, config, handler, store)
	if err != nil {
		return err
	}
	return svc.Do(ctx)
}
