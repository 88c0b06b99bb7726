package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/persona-cli/internal/model"
)

var scanCmd = &cobra.Command{
	Use:   "scan [person-id]",
	Short: "Collect recent posts from confirmed profiles",
	Long:  "Scans every confirmed profile of a person, or a single confirmed profile with --profile, and stores the collected posts.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profileID, _ := cmd.Flags().GetString("profile")
		if (len(args) == 0) == (profileID == "") {
			return eris.Wrap(model.ErrInvalidInput, "scan: pass a person id or --profile, not both")
		}

		env, err := initService(cmd.Context(), "scan")
		if err != nil {
			return err
		}
		defer env.Close()

		var res *model.ScanResult
		if profileID != "" {
			res, err = env.Service.ScanProfile(cmd.Context(), profileID)
		} else {
			res, err = env.Service.Scan(cmd.Context(), args[0])
		}
		if err != nil {
			return eris.Wrap(err, "scan")
		}
		return printJSON(os.Stdout, res)
	},
}

func init() {
	scanCmd.Flags().String("profile", "", "scan a single confirmed profile by id")
	rootCmd.AddCommand(scanCmd)
}
