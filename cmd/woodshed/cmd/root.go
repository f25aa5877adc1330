package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "woodshed",
	Short: "Woodshed is a practice-journal backend",
	Long: `The backend for the Woodshed practice journal: account registration
with email verification, cookie sessions with CSRF protection, and
per-user practice records, logs, notebooks and posts.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
