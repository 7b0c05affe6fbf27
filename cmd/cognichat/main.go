// Command cognichat runs the memory-augmented chat service.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Strob0t/CogniChat/internal/config"
	"github.com/Strob0t/CogniChat/internal/logger"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		printHelp()
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	slog.SetDefault(logger.New(cfg.Logging))

	switch cmd {
	case "serve":
		return runServe(cfg)
	case "migrate":
		return runMigrate(cfg, args)
	case "check":
		return runCheck(cfg)
	case "chat":
		return runChat(cfg, args)
	default:
		printHelp()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `Usage: cognichat [command] [options]

Commands:
  serve                  Run the HTTP and WebSocket server (default)
  migrate up|down|version
                         Apply, roll back or show database migrations
  check                  Verify configuration, store, embedder and identity provider
  chat --email <email>   Chat in the terminal
  help                   Show this help message

Configuration is read from cognichat.yaml, .env and the environment
(DATABASE_URL, SUPABASE_URL, SUPABASE_KEY, DEEPSEEK_API_KEY, ...).
`)
}
