package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "studnet",
	Short: "StudNet mini-app swipe service",
	Long: `StudNet serves the swipe screen of the StudNet Telegram mini-app.

Commands:
  serve  - run the HTTP and websocket gateway
  swipe  - browse candidates from the terminal`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(swipeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
