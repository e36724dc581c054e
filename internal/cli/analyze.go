package cli

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lumen-med/whitecard/internal/domain"
	"github.com/lumen-med/whitecard/internal/service"
)

var analyzeReportType string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image-file>",
	Short: "Upload a report image and open a new interpretation session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read report image: %w", err)
		}

		sess, err := current.pipeline.AnalyzeReport(
			cmd.Context(),
			base64.StdEncoding.EncodeToString(raw),
			domain.ParseReportType(strings.ToUpper(analyzeReportType)),
		)
		if err != nil && sess == nil {
			return err
		}
		if err != nil {
			// The session exists locally; only the push failed.
			fmt.Fprintln(os.Stderr, "Warning:", service.UserMessage(err))
		}

		printSession(cmd, *sess)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeReportType, "type", "t", string(domain.ReportUnknown),
		"declared report type (BLOOD, CT, MRI, ULTRASOUND, URINE, TUMOR_MARKER, LIVER_FUNCTION)")
}

func printSession(cmd *cobra.Command, sess domain.ChatSession) {
	cmd.Printf("Session %s: %s\n\n", sess.ID, sess.Title)
	analysis := sess.LastAnalysis()
	if analysis == nil {
		return
	}
	for _, dim := range analysis.Dimensions {
		cmd.Printf("[%s] %s\n", strings.ToUpper(string(dim.Severity)), dim.Title)
		cmd.Printf("  %s\n", dim.Conclusion)
		for _, h := range dim.Highlights {
			cmd.Printf("  - %s\n", h)
		}
		if dim.Content != "" {
			cmd.Printf("  %s\n", dim.Content)
		}
		cmd.Println()
	}
	cmd.Printf("Summary: %s\n", analysis.Summary)
	cmd.Printf("Disclaimer: %s\n", analysis.Disclaimer)
}
