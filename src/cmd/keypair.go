package cmd

import (
	"errors"
	"os"

	"github.com/solignition/ignitor/src/utils/logger"
	"github.com/solignition/ignitor/src/utils/solana"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(keypairCmd)
	keypairCmd.Flags().BoolVar(&keypairForce, "force", false, "overwrite an existing keypair file")
}

var keypairForce bool

var keypairCmd = &cobra.Command{
	Use:   "keypair",
	Short: "Generate the admin keypair file at the configured path",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		log := logger.NewSublogger("keypair-cmd")

		path := conf.Solana.KeypairPath
		if _, err = os.Stat(path); err == nil && !keypairForce {
			return errors.New("keypair file already exists, use --force to overwrite")
		}

		keypair, err := solana.NewKeypair()
		if err != nil {
			return
		}

		err = keypair.Save(path)
		if err != nil {
			return
		}

		log.WithField("path", path).
			WithField("public_key", keypair.PublicKey().String()).
			Info("Keypair generated")
		return nil
	},
}
