package sendstream

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/btrfsgo/sendstream/internal/upgrade"
)

const (
	InspectShortDescription = "Lists the commands of a send-stream"

	LimitFlag      = "limit"
	LimitShorthand = "n"
)

var (
	inspectCmd = &cobra.Command{
		Use:   "inspect",
		Short: InspectShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			commandRan = true
			options := upgrade.InspectOptions{
				InputPath: inspectInputPath,
				Limit:     inspectLimit,
			}
			return upgrade.HandleInspect(options, os.Stdout)
		},
	}

	inspectInputPath string
	inspectLimit     int
)

func init() {
	Cmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVarP(&inspectInputPath, InputFlag, InputShorthand, "", "Input send-stream path, stdin when absent")
	inspectCmd.Flags().IntVarP(&inspectLimit, LimitFlag, LimitShorthand, 0, "List at most this many commands, 0 lists everything")
}
