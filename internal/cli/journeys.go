package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"backend-journeylog/internal/client"
	"backend-journeylog/internal/journey"
	"backend-journeylog/internal/store"

	"github.com/spf13/cobra"
)

func loginCmd(opts *options) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("JOURNEYCTL_PASSWORD")
			}
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password (or JOURNEYCTL_PASSWORD) are required")
			}

			token, err := client.New(opts.apiURL).Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if err := writeToken(opts.tokenFile, token); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	return cmd
}

func listCmd(opts *options) *cobra.Command {
	var user, from, to, season string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journeys, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.authedClient()
			if err != nil {
				return err
			}
			if user == "" {
				user = client.TokenSubject(c.Token())
			}

			var filterSeason journey.Season
			if season != "" {
				s, ok := journey.ParseSeason(strings.ToUpper(season))
				if !ok {
					return fmt.Errorf("unknown season %q (expected summer|winter)", season)
				}
				filterSeason = s
			}

			st := store.New(c)
			st.SetDateRange(from, to)
			st.SetSeason(filterSeason)
			if err := st.Load(cmd.Context(), user); err != nil {
				return err
			}
			return printJourneys(cmd.OutOrStdout(), st.Visible(), opts.output)
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "User id (defaults to the token subject)")
	cmd.Flags().StringVar(&from, "from", "", "Earliest date, YYYY-MM-DD or RFC 3339")
	cmd.Flags().StringVar(&to, "to", "", "Latest date, inclusive; needs --from")
	cmd.Flags().StringVar(&season, "season", "", "summer|winter")
	return cmd
}

func showCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one journey",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.authedClient()
			if err != nil {
				return err
			}
			j, err := c.Journey(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJourney(cmd.OutOrStdout(), j, opts.output)
		},
	}
}

func deleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a journey",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.authedClient()
			if err != nil {
				return err
			}
			if err := c.DeleteJourney(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func uploadCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <id> <file>",
		Short: "Attach a picture or a .gpx track to a journey",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.authedClient()
			if err != nil {
				return err
			}
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			name := filepath.Base(args[1])
			upload := c.UploadImage
			if strings.EqualFold(filepath.Ext(name), ".gpx") {
				upload = c.UploadGpx
			}
			url, err := upload(cmd.Context(), args[0], name, f)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
}
