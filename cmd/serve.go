package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/arie/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the extraction HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	askKeyFlag(serveCmd)

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := getConfig()
	if err != nil {
		return err
	}

	boot := prepare(ctx, cmd, max(config.Server.Workers, 1))
	defer boot.close()

	addr := boot.config.Server.Addr
	if flagAddr, _ := cmd.Flags().GetString("addr"); flagAddr != "" {
		addr = flagAddr
	}

	maxUpload := int64(boot.config.Server.MaxUploadMB) << 20
	srv := server.New(addr, boot.service, maxUpload, boot.logger)

	if err := srv.ListenAndServe(ctx); err != nil {
		boot.logger.Error("server stopped", zap.Error(err))
		return err
	}
	return nil
}
