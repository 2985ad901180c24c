// Nusig is a terminal console for Bluetooth Low Energy UART peripherals.
//
// It walks the operator through choosing a device, its services and the
// characteristics to listen to and write to, then opens a console: every
// notification is shown as a tagged line and every line typed is written
// to the chosen characteristics. Nordic UART Service peripherals are
// pre-selected at each step.
//
// Usage:
//
//	nusig [command] [flags]
//
// Running without arguments launches the wizard followed by the console.
// See 'nusig --help' for available commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/nusig/internal/logging"
	"github.com/muurk/nusig/internal/version"
	"github.com/muurk/nusig/internal/wizard"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()

	if err != nil && !errors.Is(err, wizard.ErrQuit) && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "nusig",
	Short: "Bluetooth LE UART console",
	Long: `A terminal console for Bluetooth Low Energy peripherals.

The wizard lists nearby devices, then the chosen device's services and
characteristics. Notifications from the characteristics you listen to are
shown as R0>, R1>... lines; each line you type is sent to every
characteristic you write to.

Nordic UART Service peripherals are pre-selected at every step, so for a
NUS device pressing Enter four times opens the console.

If no command is specified, the wizard launches automatically.`,
	Version:           version.Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runWizard,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate("nusig {{.Version}}\n")

	versionCmd.PersistentPreRunE = skipSetup
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("nusig %s\n", version.Full())
	},
}
