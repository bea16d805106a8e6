// nova runs the assistive robot: wake word, spoken commands, motor
// control and obstacle avoidance.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teslashibe/nova-guide/internal/config"
	"github.com/teslashibe/nova-guide/internal/log"
)

var (
	version = "0.1.0"
	cfgPath string
	cfg     *config.Config
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nova",
		Short: "Nova - voice-guided assistive robot",
		Long: `Nova listens for its name, takes a spoken command and drives there,
pausing whenever something blocks its path.

Start the robot:   nova run
Learn a room:      nova rooms save kitchen 2.5 1
List rooms:        nova rooms list`,
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgPath, "config", "", "config file (default ./nova.yaml or ./config/nova.yaml)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("motion-driver", "sim", "motor driver: sim or serial")
	flags.String("serial-port", "/dev/ttyUSB0", "motor controller serial port")
	flags.String("rooms", "config/commands.json", "room store (.json, or .db for SQLite)")
	flags.String("dashboard-port", "", "serve the status dashboard on this port")
	flags.Bool("no-vision", false, "run without the camera")

	root.AddCommand(runCmd())
	root.AddCommand(roomsCmd())
	root.AddCommand(&cobra.Command{
		Use:               "version",
		Short:             "Print version information",
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "nova v%s\n", version)
		},
	})
	return root
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(cfgPath, cmd.Flags())
	if err != nil {
		return err
	}
	cfg = c
	log.Init(cfg.LogLevel)
	return nil
}
