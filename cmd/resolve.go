package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/persona-cli/internal/model"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve the social profiles of a person",
	Long:  "Upserts the person described by the flags, generates candidate profiles on every supported network, scores them and stores the result.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		seed, err := seedFromFlags(cmd)
		if err != nil {
			return err
		}

		env, err := initService(cmd.Context(), "resolve")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Service.Resolve(cmd.Context(), seed)
		if err != nil {
			return eris.Wrap(err, "resolve")
		}

		zap.L().Info("resolve complete",
			zap.String("person_id", res.Person.ID),
			zap.Int("confirmed", res.Summary.Confirmed),
			zap.Int("probable", res.Summary.Probable),
			zap.Int("pending", res.Summary.Pending),
		)
		return printJSON(os.Stdout, res)
	},
}

// seedFromFlags builds a Seed from the resolve flags.
func seedFromFlags(cmd *cobra.Command) (model.Seed, error) {
	f := cmd.Flags()
	seed := model.Seed{}
	seed.Name, _ = f.GetString("name")
	seed.Company, _ = f.GetString("company")
	seed.Role, _ = f.GetString("role")
	seed.LinkedInURL, _ = f.GetString("linkedin")
	seed.Email, _ = f.GetString("email")
	seed.Phone, _ = f.GetString("phone")

	urls := make(map[model.Network]string)
	if v, _ := f.GetString("github"); v != "" {
		urls[model.NetworkGitHub] = v
	}
	if v, _ := f.GetString("twitter"); v != "" {
		urls[model.NetworkTwitter] = v
	}
	if len(urls) > 0 {
		seed.ProfileURLs = urls
	}

	if err := seed.Validate(); err != nil {
		return model.Seed{}, err
	}
	return seed, nil
}

func init() {
	resolveCmd.Flags().String("name", "", "full name of the person (required)")
	resolveCmd.Flags().String("company", "", "current company")
	resolveCmd.Flags().String("role", "", "current role or title")
	resolveCmd.Flags().String("linkedin", "", "known LinkedIn profile URL")
	resolveCmd.Flags().String("github", "", "known GitHub profile URL")
	resolveCmd.Flags().String("twitter", "", "known X/Twitter profile URL")
	resolveCmd.Flags().String("email", "", "email address")
	resolveCmd.Flags().String("phone", "", "phone number")
	rootCmd.AddCommand(resolveCmd)
}
