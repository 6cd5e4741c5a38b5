package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/therealutkarshpriyadarshi/numquant/pkg/api/rest"
	"github.com/therealutkarshpriyadarshi/numquant/pkg/api/rest/middleware"
	"github.com/therealutkarshpriyadarshi/numquant/pkg/config"
	"github.com/therealutkarshpriyadarshi/numquant/pkg/observability"
	"github.com/therealutkarshpriyadarshi/numquant/pkg/quant"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version and exit")
		showHelp    = flag.Bool("help", false, "show help and exit")
		host        = flag.String("host", "", "server host (overrides env)")
		port        = flag.Int("port", 0, "server port (overrides env)")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("numquant server v%s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	if *showHelp {
		showUsage()
		os.Exit(0)
	}

	printBanner()

	cfg := config.LoadFromEnv()

	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	logger := observability.NewLogger(observability.ParseLogLevel(cfg.LogLevel), os.Stdout)
	observability.SetGlobalLogger(logger)

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	metrics := observability.NewMetrics()

	server := rest.NewServer(rest.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		Codec:       cfg.Codec,
		CORSEnabled: true,
		CORSOrigins: []string{"*"},
		Auth: middleware.AuthConfig{
			Enabled:     cfg.Auth.Enabled,
			JWTSecret:   cfg.Auth.JWTSecret,
			PublicPaths: []string{"/v1/health", "/metrics"},
		},
		RateLimit: middleware.RateLimitConfig{
			Enabled:        cfg.RateLimit.Enabled,
			RequestsPerSec: cfg.RateLimit.RequestsPerSecond,
			Burst:          cfg.RateLimit.Burst,
		},
	}, logger, metrics)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	printStartupInfo(cfg)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	logger.Info("Server is ready. Press Ctrl+C to stop.")
	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-errCh:
		if err != nil {
			logger.Fatalf("Server error: %v", err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}

	logger.Info("Server stopped. Goodbye!")
}

func printBanner() {
	banner := `
╔═══════════════════════════════════════════════════════════╗
║                                                           ║
║   _ __  _   _ _ __ ___   __ _ _   _  __ _ _ __ | |_       ║
║  | '_ \| | | | '_ ` + "`" + ` _ \ / _` + "`" + ` | | | |/ _` + "`" + ` | '_ \| __|      ║
║  | | | | |_| | | | | | | (_| | |_| | (_| | | | | |_       ║
║  |_| |_|\__,_|_| |_| |_|\__, |\__,_|\__,_|_| |_|\__|      ║
║                            |_|                            ║
║                                                           ║
║   Fixed-Width Numeric Quantization Service                ║
║                                                           ║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Println(banner)
	fmt.Printf("Version: %s (commit: %s)\n\n", version, commit)
}

func printStartupInfo(cfg *config.Config) {
	fmt.Println("\n╔════════════════════════════════════════════════════════╗")
	fmt.Println("║               Server Configuration                     ║")
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Printf("║ Address:          %-35s ║\n", cfg.Server.Address())
	fmt.Printf("║ TLS Enabled:      %-35v ║\n", cfg.Server.EnableTLS)
	fmt.Printf("║ Auth Enabled:     %-35v ║\n", cfg.Auth.Enabled)
	fmt.Printf("║ Rate Limiting:    %-35v ║\n", cfg.RateLimit.Enabled)
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Println("║               Codec Configuration                      ║")
	fmt.Println("╠════════════════════════════════════════════════════════╣")
	fmt.Printf("║ Default Kind:     %-35s ║\n", cfg.Codec.DefaultKind)
	fmt.Printf("║ Round Mode:       %-35s ║\n", cfg.Codec.DefaultRoundMode)
	fmt.Printf("║ Max Elements:     %-35d ║\n", cfg.Codec.MaxElements)
	fmt.Printf("║ Max Rank:         %-35d ║\n", cfg.Codec.MaxRank)
	fmt.Printf("║ Kinds:            %-35d ║\n", len(quant.Kinds()))
	fmt.Println("╚════════════════════════════════════════════════════════╝")
	fmt.Println()
}

func showUsage() {
	fmt.Println("numquant server - HTTP quantization codec service")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  numquant-server [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -help             Show this help message")
	fmt.Println("  -version          Show version information")
	fmt.Println("  -host HOST        Server host (default: 0.0.0.0)")
	fmt.Println("  -port PORT        Server port (default: 8080)")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  NUMQUANT_HOST                 Server host")
	fmt.Println("  NUMQUANT_PORT                 Server port")
	fmt.Println("  NUMQUANT_REQUEST_TIMEOUT      Request timeout (e.g., 30s)")
	fmt.Println("  NUMQUANT_SHUTDOWN_TIMEOUT     Graceful shutdown timeout")
	fmt.Println("  NUMQUANT_ENABLE_TLS           Enable TLS (true/false)")
	fmt.Println("  NUMQUANT_TLS_CERT             TLS certificate file")
	fmt.Println("  NUMQUANT_TLS_KEY              TLS key file")
	fmt.Println("  NUMQUANT_DEFAULT_KIND         Default target kind (e.g., uint8)")
	fmt.Println("  NUMQUANT_DEFAULT_ROUND_MODE   Log round mode (linspace/logspace)")
	fmt.Println("  NUMQUANT_MAX_ELEMENTS         Max tensor elements per request")
	fmt.Println("  NUMQUANT_MAX_RANK             Max tensor rank per request")
	fmt.Println("  NUMQUANT_AUTH_ENABLED         Require bearer tokens (true/false)")
	fmt.Println("  NUMQUANT_JWT_SECRET           HMAC signing secret")
	fmt.Println("  NUMQUANT_TOKEN_TTL            Token lifetime (e.g., 1h)")
	fmt.Println("  NUMQUANT_RATE_LIMIT_ENABLED   Enable rate limiting (true/false)")
	fmt.Println("  NUMQUANT_RATE_LIMIT_RPS       Requests per second per client")
	fmt.Println("  NUMQUANT_RATE_LIMIT_BURST     Burst allowance per client")
	fmt.Println("  NUMQUANT_LOG_LEVEL            Log level (DEBUG/INFO/WARN/ERROR)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  # Start with default configuration")
	fmt.Println("  numquant-server")
	fmt.Println()
	fmt.Println("  # Start on custom port")
	fmt.Println("  numquant-server -port 9090")
	fmt.Println()
	fmt.Println("  # Start with environment variables")
	fmt.Println("  NUMQUANT_PORT=9090 NUMQUANT_DEFAULT_KIND=int16 numquant-server")
	fmt.Println()
}
