package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "courtbook",
	Short: "Courtbook — session sign-up service",
	Long:  "Courtbook is a small scheduling service for recurring group sessions: members register sessions on the calendar, sign up to attend or stand by as substitutes, and get notified by email when a new session is booked.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: configs/courtbook.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
