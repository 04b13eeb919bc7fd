package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/oformaniuk/fwda/config"
	"github.com/oformaniuk/fwda/internal/bootstrap"
	"github.com/oformaniuk/fwda/internal/data/cryptoutil"
	"github.com/oformaniuk/fwda/internal/portal"
	"github.com/oformaniuk/fwda/internal/secrets"
)

// settings are the values commands read from the environment and flags.
type settings struct {
	configPath string
	key        string
}

func main() {
	logger := bootstrap.InitLogger(slog.LevelWarn, false)

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(context.Background(), "load config", "error", err)
		os.Exit(1) //nolint:forbidigo // CLI must signal configuration load failure to shell scripts
	}

	if err := newRootCmd(cfg).Execute(); err != nil {
		os.Exit(1) //nolint:forbidigo // CLI must propagate command execution failure to callers
	}
}

func newRootCmd(cfg config.AppConfig) *cobra.Command {
	s := &settings{configPath: cfg.ConfigPath, key: cfg.ConfigEncryptionKey}

	root := &cobra.Command{
		Use:          "fwda-admin",
		Short:        "Maintenance commands for the fwda forward-auth gateway",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&s.key, "key", s.key,
		"configuration encryption key (defaults to "+secrets.EnvKey+")")

	root.AddCommand(encryptCmd(s), decryptCmd(s), checkConfigCmd(s), genKeyCmd())
	return root
}

func encryptCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt <value>",
		Short: "Encrypt a value for use as an ENC: scalar in the portal document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := requireCodec(s.key)
			if err != nil {
				return err
			}
			out, err := codec.Encrypt(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
}

func decryptCmd(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt <value>",
		Short: "Decrypt an ENC: scalar from the portal document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := requireCodec(s.key)
			if err != nil {
				return err
			}
			if !secrets.IsEncrypted(args[0]) {
				return fmt.Errorf("value does not start with %s", secrets.Prefix)
			}
			out, err := codec.Decrypt(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
}

func checkConfigCmd(s *settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-config",
		Short: "Load the portal document and report each portal's login capability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := portal.Load(s.configPath, secrets.NewCodec(s.key))
			if err != nil {
				return err
			}
			return printPortals(cmd.OutOrStdout(), s.configPath, reg)
		},
	}
	cmd.Flags().StringVar(&s.configPath, "config", s.configPath, "path to the portal document")
	return cmd
}

func genKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gen-key",
		Short: "Print a random base64 master key for DATA_PROTECTION_KEY",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := cryptoutil.NewMasterKey()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), base64.StdEncoding.EncodeToString(key))
			return err
		},
	}
}

func requireCodec(key string) (*secrets.Codec, error) {
	codec := secrets.NewCodec(key)
	if !codec.Enabled() {
		return nil, errors.New("no encryption key: set " + secrets.EnvKey + " or pass --key")
	}
	return codec, nil
}

func printPortals(w io.Writer, path string, reg *portal.Registry) error {
	if _, err := fmt.Fprintf(w, "%s: %d portal(s), session timeout %s\n\n", path, reg.Len(), reg.SessionTimeout()); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "PORTAL\tHOSTNAME\tCOOKIE DOMAIN\tOIDC\tSCOPES"); err != nil {
		return err
	}
	for _, p := range reg.All() {
		oidc, scopes := "no", "-"
		if p.OIDCEligible() {
			oidc = "yes"
			scopes = strings.Join(p.OIDC.Scopes, " ")
			if scopes == "" {
				scopes = "(none)"
			}
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			p.Name, orDash(p.Hostname), orDash(p.CookieDomain), oidc, scopes); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
