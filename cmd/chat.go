package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aakashium/shopassist/internal/app"
	"github.com/aakashium/shopassist/internal/config"
	"github.com/aakashium/shopassist/internal/session"
)

// apologyMessage is what the customer sees on any unrecovered failure.
const apologyMessage = "Sorry, something went wrong while answering. Please try again."

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	logger := initLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("closing application", "error", err)
		}
	}()

	return chatLoop(ctx, a, os.Stdin, os.Stdout)
}

// chatLoop reads queries line by line and prints answers. The transcript
// lives for the duration of the loop and is discarded on exit.
func chatLoop(ctx context.Context, a *app.App, in io.Reader, out io.Writer) error {
	hist := session.NewHistory()
	scanner := bufio.NewScanner(in)

	fmt.Fprintln(out, "Shop Catalog Assistant - ask about our products.")
	fmt.Fprintln(out, "Commands: /history, /clear, /exit")

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break // EOF (Ctrl+D)
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}

		switch query {
		case "/exit", "/quit":
			return scanner.Err()
		case "/clear":
			hist.Clear()
			fmt.Fprintln(out, "Conversation history cleared.")
			continue
		case "/history":
			printTranscript(out, hist)
			continue
		}

		answer, err := a.Assistant.Answer(ctx, hist, query)
		if err != nil {
			a.Logger.Error("answering query", "error", err)
			fmt.Fprintln(out, apologyMessage)
			if errors.Is(err, context.Canceled) {
				return err
			}
			continue
		}
		fmt.Fprintln(out, answer)
	}
	return scanner.Err()
}

func printTranscript(out io.Writer, hist *session.History) {
	turns := hist.Turns()
	if len(turns) == 0 {
		fmt.Fprintln(out, "No conversation yet.")
		return
	}
	for _, t := range turns {
		switch t.Role {
		case session.RoleUser:
			fmt.Fprintf(out, "You: %s\n", t.Text)
		case session.RoleAssistant:
			fmt.Fprintf(out, "Assistant: %s\n", t.Text)
		}
	}
}
