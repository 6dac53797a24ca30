package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aretw0/espalier"
	"github.com/aretw0/espalier/internal/logging"
	"github.com/aretw0/espalier/pkg/adapters/httpapi"
	redisadapter "github.com/aretw0/espalier/pkg/adapters/redis"
	"github.com/aretw0/espalier/pkg/adapters/yamlchart"
	"github.com/aretw0/espalier/pkg/metrics"
	"github.com/aretw0/espalier/pkg/ports"
)

var serveCmd = &cobra.Command{
	Use:   "serve <chart.yaml>",
	Short: "Serve chart sessions over HTTP",
	Long:  `Starts a JSON API where each session runs its own interpreter for the chart. Prometheus metrics are exposed on /metrics.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetString("port")
		redisAddr, _ := cmd.Flags().GetString("redis")
		ttl, _ := cmd.Flags().GetDuration("session-ttl")
		level, _ := cmd.Flags().GetString("log-level")

		compiled, err := yamlchart.LoadCompiled(args[0])
		if err != nil {
			fmt.Printf("Error loading chart: %v\n", err)
			os.Exit(1)
		}

		logger := logging.New(logging.ParseLevel(level))

		promReg := prometheus.NewRegistry()
		recorder, err := metrics.NewRecorder(promReg)
		if err != nil {
			fmt.Printf("Error registering metrics: %v\n", err)
			os.Exit(1)
		}

		factory := func(sessionID string) (*espalier.Interpreter, error) {
			return espalier.NewFromChart(compiled, simRegistry(compiled),
				espalier.WithID(sessionID),
				espalier.WithLogger(logger),
				espalier.WithHooks(recorder.Hooks()),
			), nil
		}

		opts := []httpapi.ManagerOption{httpapi.WithLogger(logger)}
		var store ports.SnapshotStore
		if redisAddr != "" {
			store = redisadapter.New(redisAddr, redisadapter.WithTTL(ttl))
			logger.Info("using redis snapshot store", "addr", redisAddr, "ttl", ttl)
		}
		if store != nil {
			opts = append(opts, httpapi.WithStore(store))
		}

		manager := httpapi.NewManager(factory, opts...)

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
		mux.Handle("/", httpapi.NewHandler(manager))

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: mux,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting Espalier Server on %s\n", srv.Addr)
			fmt.Printf("Serving chart: %s\n", compiled.ID())
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			// Error when starting HTTP server.
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			// Asking listener to shut down and shed load.
			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Espalier Server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("redis", "", "Redis address for snapshot persistence (empty keeps sessions in memory only)")
	serveCmd.Flags().Duration("session-ttl", 0, "Expiry for persisted snapshots (0 keeps them forever)")
}
