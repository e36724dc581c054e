package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lumen-med/whitecard/internal/domain"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage interpretation sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions := current.store.Sessions()
		if len(sessions) == 0 {
			cmd.Println("No sessions.")
			return nil
		}
		currentID := current.store.CurrentSessionID()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tMESSAGES\tTITLE")
		for _, s := range sessions {
			marker := ""
			if s.ID == currentID {
				marker = " *"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s%s\n",
				s.ID, s.CreatedAt.Format("2006-01-02 15:04"), len(s.Messages), s.Title, marker)
		}
		return w.Flush()
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a session's analysis and conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, ok := current.store.Session(args[0])
		if !ok {
			return domain.ErrSessionNotFound
		}
		printSession(cmd, sess)
		for _, m := range sess.Messages {
			label := string(m.Role)
			if m.Feedback != domain.FeedbackNone {
				label += " [" + string(m.Feedback) + "]"
			}
			cmd.Printf("%s: %s\n", label, m.Content)
		}
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session locally and remotely",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !current.syncer.DeleteSession(args[0]) {
			return domain.ErrSessionNotFound
		}
		cmd.Println("Deleted.")
		return nil
	},
}

var sessionsFeedbackCmd = &cobra.Command{
	Use:   "feedback <session-id> <message-id> <up|down|none>",
	Short: "Rate an assistant message",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var fb domain.Feedback
		switch args[2] {
		case "up":
			fb = domain.FeedbackUp
		case "down":
			fb = domain.FeedbackDown
		case "none":
			fb = domain.FeedbackNone
		default:
			return errors.New("rating must be up, down or none")
		}
		if !current.syncer.SubmitFeedback(args[0], args[1], fb) {
			return errors.New("message not found or not signed in")
		}
		return nil
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsDeleteCmd, sessionsFeedbackCmd)
}
