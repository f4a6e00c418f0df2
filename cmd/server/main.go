package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/jrsteele09/go-strava-proxy/activities"
	"github.com/jrsteele09/go-strava-proxy/auth"
	"github.com/jrsteele09/go-strava-proxy/internal/config"
	"github.com/jrsteele09/go-strava-proxy/provider"
	"github.com/jrsteele09/go-strava-proxy/server"
	"github.com/jrsteele09/go-strava-proxy/server/authflowrepo"
	"github.com/jrsteele09/go-strava-proxy/sessions"
	"github.com/jrsteele09/go-strava-proxy/token"
	"github.com/jrsteele09/go-strava-proxy/weather"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 5 * time.Second
	cleanupInterval = 5 * time.Minute
)

var rootCmd = &cobra.Command{
	Use:   "strava-proxy",
	Short: "Strava OAuth session proxy and activity feed",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Load .env file if exists (ignore error if not found)
		_ = godotenv.Load()
		setupLogging(config.New())
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve("")
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAuthURLCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "strava-proxy: %v\n", err)
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(port)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen address, overrides PORT")
	return cmd
}

func newAuthURLCmd() *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "auth-url",
		Short: "Print the provider authorization URL for the configured client",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := config.New()
			if err := auth.ValidateConfig(c); err != nil {
				return fmt.Errorf("invalid oauth configuration: %w", err)
			}
			if state == "" {
				state = uuid.NewString()
			}
			fmt.Fprintln(cmd.OutOrStdout(), token.NewManager(c).AuthCodeURL(state))
			return nil
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "state parameter to embed, random when empty")
	return cmd
}

func serve(port string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("stack", string(debug.Stack())).Msg(fmt.Sprintf("Recovered from panic: %v", r))
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	if err := auth.ValidateConfig(c); err != nil {
		return fmt.Errorf("invalid oauth configuration: %w", err)
	}
	if err := auth.ValidateSessionSecret(c.GetEnv(), c.GetSessionSecret()); err != nil {
		return fmt.Errorf("invalid security configuration: %w", err)
	}
	displayAppname(c.GetAppName())

	handler, err := newServer(c)
	if err != nil {
		return err
	}

	addr := c.GetPort()
	if port != "" {
		addr = port
		if !strings.Contains(addr, ":") {
			addr = ":" + addr
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handler.RunCleanup(ctx, cleanupInterval)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(httpServer)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}

	returnError = shutdown(httpServer)
	log.Info().Msg("Server stopped")
	return returnError
}

func newServer(c config.Config) (*server.Server, error) {
	pipelineOptions := []activities.PipelineOption{}
	if baseURL := c.GetWeatherBaseURL(); baseURL != "" {
		pipelineOptions = append(pipelineOptions, activities.WithWeather(weather.NewOpenMeteo(baseURL, c.GetAPITimeout())))
	}

	authService, err := auth.NewService(
		token.NewManager(c),
		activities.NewPipeline(provider.NewClient(c), c, pipelineOptions...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth service: %w", err)
	}

	s, err := server.New(c, authService, sessions.NewInMemoryRepo(c.GetMaxSessionAge()), authflowrepo.NewInMemoryRepo())
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}
	return s, nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func setupLogging(c config.EnvConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(c.GetLogLevel()))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if c.GetEnv() == config.DevEnv {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
