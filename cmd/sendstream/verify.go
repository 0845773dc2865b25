package sendstream

import (
	"github.com/spf13/cobra"

	"github.com/btrfsgo/sendstream/internal/upgrade"
)

const VerifyShortDescription = "Decodes a send-stream and validates every checksum"

var (
	verifyCmd = &cobra.Command{
		Use:   "verify",
		Short: VerifyShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			commandRan = true
			return upgrade.HandleVerify(verifyInputPath)
		},
	}

	verifyInputPath string
)

func init() {
	Cmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVarP(&verifyInputPath, InputFlag, InputShorthand, "", "Input send-stream path, stdin when absent")
}
