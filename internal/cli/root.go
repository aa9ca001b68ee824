package cli

import (
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ishaan-arora-1/classroom-live/internal/ui"
	"github.com/ishaan-arora-1/classroom-live/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "classroom",
	Short:   "Terminal client for Classroom Live: seat-based virtual classrooms with peer-to-peer voice",
	Long:    `Classroom Live connects you to a virtual classroom session: pick a seat on the room grid, see who else is in the room, and talk to them over direct WebRTC audio links brokered by the relay server.`,
	Version: version.Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		os.Exit(0)
	}()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
