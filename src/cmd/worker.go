package cmd

import (
	"github.com/detrash/recy-pipeline/src/evidence"
	"github.com/detrash/recy-pipeline/src/utils/logger"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(workerCmd)
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume evidence jobs and generate report certificates",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		controller, err := evidence.NewController(conf)
		if err != nil {
			return
		}

		err = controller.Start()
		if err != nil {
			return
		}

		select {
		case <-controller.CtxRunning.Done():
		case <-ctx.Done():
		}

		controller.StopWait()

		return
	},
	PostRunE: func(cmd *cobra.Command, args []string) (err error) {
		log := logger.NewSublogger("root-cmd")
		log.Debug("Finished worker command")
		cancel()
		return
	},
}
