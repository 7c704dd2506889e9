package main

import (
	"github.com/rogerio-castellano/openbarcode/internal/catalog"
	"github.com/rogerio-castellano/openbarcode/internal/config"
	"github.com/rogerio-castellano/openbarcode/internal/enrich"
	"github.com/rogerio-castellano/openbarcode/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg *config.Config
	log *zap.Logger
}

func (a *app) catalog() *catalog.Client {
	return catalog.New(a.cfg.APIURL,
		catalog.WithTimeout(a.cfg.HTTPTimeout),
		catalog.WithLogger(a.log.Named("catalog")))
}

func (a *app) enricher() *enrich.Client {
	return enrich.New(a.cfg.OFFURL,
		enrich.WithRatePerMinute(a.cfg.OFFRatePerMinute),
		enrich.WithLogger(a.log.Named("enrich")))
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "openbarcode",
		Short:         "Scan barcodes and maintain a product catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			log, err := logging.New(cfg.Log.Mode, cfg.Log.Level)
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(log)
			a.cfg, a.log = cfg, log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default ./openbarcode.yaml)")
	pf.String("api-url", "", "catalog API base URL")
	pf.String("off-url", "", "Open Food Facts base URL")
	pf.Duration("http-timeout", 0, "HTTP client timeout")
	pf.String("log-mode", "", "log format: development or production")
	pf.String("log-level", "", "minimum log level")

	root.AddCommand(
		newScanCmd(a),
		newLookupCmd(a),
		newProductsCmd(a),
		newBrandsCmd(a),
		newCategoriesCmd(a),
		newImagesCmd(a),
		newStubCmd(a),
	)
	return root
}
