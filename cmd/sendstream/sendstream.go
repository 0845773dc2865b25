package sendstream

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/wal-g/tracelog"

	"github.com/btrfsgo/sendstream/internal/config"
)

const ShortDescription = "BTRFS send-stream upgrade tool"

// These variables are here only to show current version. They are set in makefile during build process
var (
	Version     = "devel"
	GitRevision = "devel"
	BuildDate   = "devel"
)

var Cmd = &cobra.Command{
	Use:           "sendstream",
	Short:         ShortDescription,
	Version:       Version + "\t" + GitRevision + "\t" + BuildDate,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.ConfigureLogging()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := Cmd.Execute(); err != nil {
		tracelog.ErrorLogger.Println(err)
		os.Exit(exitCode(err))
	}
}

func init() {
	cobra.OnInitialize(config.InitConfig)

	Cmd.PersistentFlags().StringVar(&config.CfgFile, "config", "", "config file (default is $HOME/.sendstream.yaml)")
	Cmd.InitDefaultVersionFlag()
	config.AddConfigFlags(Cmd)
}
