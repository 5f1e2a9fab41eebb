package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/credencemarkets/credence/api"
	"github.com/credencemarkets/credence/broker"
	"github.com/credencemarkets/credence/config"
	"github.com/credencemarkets/credence/fee"
	"github.com/credencemarkets/credence/logging"
	"github.com/credencemarkets/credence/market"
	"github.com/credencemarkets/credence/registry"
)

func runCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pricing engine and serve its HTTP API",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Read(configPath)
			if err != nil {
				return err
			}

			log := logging.NewLoggerFromEnv(cfg.Environment)
			defer log.AtExit()

			feeEngine, err := fee.New(log, cfg.Market.Fee)
			if err != nil {
				return err
			}
			reg, err := registry.New(log, cfg.Market.Registry)
			if err != nil {
				return err
			}
			bkr := broker.New(log, cfg.Broker)
			engine := market.New(log, cfg.Market, feeEngine, reg, bkr)
			server := api.NewServer(log, cfg.API, engine)

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				log.Info("shutting down", logging.String("signal", sig.String()))
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return server.Stop(ctx)
			}
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the TOML configuration file")
	return cmd
}
