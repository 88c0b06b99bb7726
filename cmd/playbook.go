package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var playbookCmd = &cobra.Command{
	Use:   "playbook <person-id>",
	Short: "Generate a vendor playbook from a stored persona",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		vendor, _ := cmd.Flags().GetString("vendor")
		show, _ := cmd.Flags().GetBool("show")

		env, err := initService(ctx, "playbook")
		if err != nil {
			return err
		}
		defer env.Close()

		if show {
			pb, err := env.Service.Playbook(ctx, args[0], vendor)
			if err != nil {
				return eris.Wrap(err, "playbook show")
			}
			return printJSON(os.Stdout, pb)
		}

		res, err := env.Service.GeneratePlaybook(ctx, args[0], vendor)
		if err != nil {
			return eris.Wrap(err, "playbook")
		}
		return printJSON(os.Stdout, res)
	},
}

func init() {
	playbookCmd.Flags().String("vendor", "", "vendor id (default from config)")
	playbookCmd.Flags().Bool("show", false, "print the stored playbook instead of regenerating it")
	rootCmd.AddCommand(playbookCmd)
}
