package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rogerio-castellano/openbarcode/internal/fakeapi"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newStubCmd(a *app) *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "stub",
		Short: "Serve an in-memory catalog API for local use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := fakeapi.NewStore()
			if seed {
				if err := seedStore(store); err != nil {
					return err
				}
			}

			srv := &http.Server{
				Addr:              a.cfg.Stub.Addr,
				Handler:           fakeapi.NewRouter(store, a.log.Named("stub")),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				a.log.Info("stub catalog listening", zap.String("addr", srv.Addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			a.log.Info("shutting down stub catalog")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default :8000)")
	cmd.Flags().BoolVar(&seed, "seed", false, "start with sample brands and categories")
	return cmd
}

func seedStore(store *fakeapi.Store) error {
	for _, name := range []string{"Nestlé", "Ferrero", "Unilever"} {
		if _, err := store.CreateBrand(name); err != nil {
			return err
		}
	}
	store.CreateCategory("Beverages", "Drinks of every kind")
	store.CreateCategory("Snacks", "")
	store.CreateCategory("Dairy", "Milk, cheese and yoghurt")
	return nil
}
