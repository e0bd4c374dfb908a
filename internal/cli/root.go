package cli

import (
	"errors"
	"os"
	"path/filepath"

	"backend-journeylog/internal/client"
	"backend-journeylog/internal/config"

	"github.com/spf13/cobra"
)

var errTokenExpired = errors.New("token missing or expired, run `journeyctl login`")

type options struct {
	apiURL    string
	tokenFile string
	output    string
}

func Execute() {
	cmd := newRootCmd(config.Load())
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg config.Config) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "journeyctl",
		Short:        "Manage mountaineering journeys from the terminal",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.apiURL, "api", cfg.APIURL, "API base URL")
	cmd.PersistentFlags().StringVar(&opts.tokenFile, "token-file", defaultTokenFile(cfg), "File holding the bearer token")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "pretty", "Output format: pretty|json|yaml")

	cmd.AddCommand(
		loginCmd(opts),
		listCmd(opts),
		showCmd(opts),
		deleteCmd(opts),
		uploadCmd(opts),
		meteoCmd(opts),
	)
	return cmd
}

func defaultTokenFile(cfg config.Config) string {
	if cfg.TokenFile != "" {
		return cfg.TokenFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".journeyctl-token"
	}
	return filepath.Join(home, ".journeyctl", "token")
}

// authedClient returns a client carrying the stored token, refusing to send
// one that has already expired.
func (o *options) authedClient() (*client.Client, error) {
	token, err := readToken(o.tokenFile)
	if err != nil {
		return nil, err
	}
	if client.TokenExpired(token, now()) {
		return nil, errTokenExpired
	}
	return client.New(o.apiURL, client.WithToken(token)), nil
}
