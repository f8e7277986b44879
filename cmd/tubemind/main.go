package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/chitrank123/TubeMind-Pro/internal/api"
	"github.com/chitrank123/TubeMind-Pro/internal/session"
	"github.com/chitrank123/TubeMind-Pro/internal/stream"
	"github.com/chitrank123/TubeMind-Pro/internal/tui"
	"github.com/chitrank123/TubeMind-Pro/internal/videoref"
)

const (
	defaultAPIURL = "http://localhost:8001"
	defaultWSURL  = "ws://localhost:8001"
)

func main() {
	// A missing .env is fine; flags and process env still apply.
	_ = godotenv.Load()

	apiURL := flag.String("api", envOr("TUBEMIND_API_URL", defaultAPIURL), "backend REST base URL")
	wsURL := flag.String("ws", envOr("TUBEMIND_WS_URL", defaultWSURL), "backend websocket base URL")
	noAltScreen := flag.Bool("no-alt-screen", false, "disable the alternate screen buffer")
	logPath := flag.String("log", "", "append job and channel logs to this file")
	flag.Parse()

	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Println("failed to open log file:", err)
			os.Exit(1)
		}
		defer f.Close()
		log.SetOutput(f)
	} else {
		// Keep stdlib log chatter off the rendered screen.
		log.SetOutput(io.Discard)
	}

	client := api.New(*apiURL, nil)

	dial := func(ctx context.Context, token string, sessionID int64, videoID string) (session.Conn, error) {
		return stream.Dial(ctx, stream.Config{
			BaseURL:   *wsURL,
			Token:     token,
			SessionID: sessionID,
			WatchURL:  videoref.WatchURL(videoID),
		})
	}
	controller := session.New(client, dial)

	opts := []tea.ProgramOption{}
	if !*noAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(
		tui.New(tui.Config{
			Auth:       client,
			Controller: controller,
		}),
		opts...,
	)

	if _, err := program.Run(); err != nil {
		fmt.Println("program error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
