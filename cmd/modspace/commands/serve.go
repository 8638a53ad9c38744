package commands

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/marshallshelly/modspace/cmd/modspace/output"
	"github.com/marshallshelly/modspace/internal/app"
	"github.com/marshallshelly/modspace/internal/server"
)

var (
	serveAddr      string
	serveBootstrap bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the REST API",
	Long: `Serve the users, books, catalogs, students and contact-infos resources
under /api/v1.

The listen address is taken from --addr, or from BIND_ADDRESS and PORT
(default 0.0.0.0:8080). --bootstrap creates missing tables first.`,
	Example: `  modspace serve --driver sqlite --db modspace.db --bootstrap
  DATABASE_URL=postgres://postgres@localhost/modspace modspace serve --addr :9000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (host:port)")
	serveCmd.Flags().BoolVar(&serveBootstrap, "bootstrap", false, "Create the application tables if they do not exist")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	em, err := openManager(ctx, cfg)
	if err != nil {
		output.Error("Failed to connect: %v", err)
		return err
	}
	defer em.DB().Close()

	if serveBootstrap {
		if err := app.Bootstrap(ctx, em.DB()); err != nil {
			return err
		}
		output.Success("Schema ready (%s)", em.DB().Dialect())
	}

	srv := server.NewServer(em, listenAddr(serveAddr))
	output.Info("Listening on %s", srv.Addr())

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	output.Muted("Server stopped")
	return nil
}

// listenAddr resolves the listen address from the flag or the environment.
func listenAddr(flag string) string {
	if flag != "" {
		return flag
	}
	host := os.Getenv("BIND_ADDRESS")
	if host == "" {
		host = "0.0.0.0"
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return net.JoinHostPort(host, port)
}
