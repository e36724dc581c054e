package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lumen-med/whitecard/internal/domain"
	"github.com/lumen-med/whitecard/internal/service"
)

var chatSessionID string

var chatCmd = &cobra.Command{
	Use:   "chat [question]",
	Short: "Ask follow-up questions about the current session's report",
	Long: `chat sends one question when given as an argument, or reads
questions line by line from stdin otherwise. It targets the current
session unless --session selects another one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if chatSessionID != "" {
			if !current.store.SetCurrentSessionID(chatSessionID) {
				return domain.ErrSessionNotFound
			}
		}

		if len(args) == 1 {
			return ask(cmd, args[0])
		}

		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		cmd.Println("Type a question, empty line to quit.")
		for {
			cmd.Print("> ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				return nil
			}
			if err := ask(cmd, line); err != nil {
				fmt.Fprintln(os.Stderr, "Error:", err)
			}
		}
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatSessionID, "session", "s", "", "session id to chat in (default: current)")
}

func ask(cmd *cobra.Command, text string) error {
	reply, err := current.pipeline.SendMessage(cmd.Context(), text)
	if err != nil && reply == nil {
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			return errors.New("no session selected; run analyze first or pass --session")
		case errors.Is(err, domain.ErrNoAnalysis):
			return errors.New("this session has no report analysis to discuss")
		default:
			return err
		}
	}
	if reply != nil {
		cmd.Println(reply.Content)
	}
	if err != nil {
		// The reply was applied locally; only the push failed.
		fmt.Fprintln(os.Stderr, "Warning:", service.UserMessage(err))
	}
	return nil
}
