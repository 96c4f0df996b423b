package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/rollcall/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the JSON API server",
	Long: `Start the rollcall JSON API.

Endpoints:
  POST   /api/v1/students?name=<name>   enroll (body: image bytes)
  GET    /api/v1/students               list enrolled students
  POST   /api/v1/attendance             mark attendance (body: image bytes)
  GET    /api/v1/attendance             attendance history, newest first
  DELETE /api/v1/attendance             clear attendance history
  GET    /metrics                       Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Bool("no-metrics", false, "Do not expose /metrics")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
// Environment variables win over flag defaults, explicit flags win over both.
func resolveServeHostPort(cmd *cobra.Command, envHost string, envPort int) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if !cmd.Flags().Changed("port") && os.Getenv("WEB_PORT") != "" {
		port = envPort
	}
	if !cmd.Flags().Changed("host") && os.Getenv("WEB_HOST") != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	var registry *prometheus.Registry
	if !mustGetBool(cmd, "no-metrics") {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, registry)
	if err != nil {
		return err
	}
	defer a.Close()

	port, host := resolveServeHostPort(cmd, a.cfg.Web.Host, a.cfg.Web.Port)

	var gatherer prometheus.Gatherer
	if registry != nil {
		gatherer = registry
	}
	server := web.NewServer(a.cfg, port, host, a.service, gatherer, a.logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting rollcall API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
