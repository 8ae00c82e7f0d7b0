package cmd

import (
	"github.com/solignition/ignitor/src/deploy"
	"github.com/solignition/ignitor/src/utils/model"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Observe the lending protocol and deploy borrower programs",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		err = model.Migrate(ctx, conf)
		if err != nil {
			return
		}

		controller, err := deploy.NewController(conf)
		if err != nil {
			return
		}

		err = controller.Start()
		if err != nil {
			return
		}

		<-ctx.Done()

		controller.StopWait()
		return nil
	},
}
