package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var personaCmd = &cobra.Command{
	Use:   "persona <person-id>",
	Short: "Build the persona vector of a person",
	Long:  "Scans confirmed profiles, classifies new posts and extracts the persona vector. With --show, prints the stored vector without rebuilding it.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		show, _ := cmd.Flags().GetBool("show")

		mode := "persona"
		if show {
			mode = "playbook"
		}
		env, err := initService(ctx, mode)
		if err != nil {
			return err
		}
		defer env.Close()

		if show {
			v, err := env.Service.Persona(ctx, args[0])
			if err != nil {
				return eris.Wrap(err, "persona show")
			}
			return printJSON(os.Stdout, v)
		}

		res, err := env.Service.BuildPersona(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "persona")
		}
		zap.L().Info("persona built",
			zap.String("person_id", args[0]),
			zap.Int("total_posts", res.Stats.TotalPosts),
			zap.Int("profiles_scanned", res.Stats.ProfilesScanned),
			zap.Int("classifications", res.Stats.Classifications),
		)
		return printJSON(os.Stdout, res)
	},
}

func init() {
	personaCmd.Flags().Bool("show", false, "print the stored persona instead of rebuilding it")
	rootCmd.AddCommand(personaCmd)
}
