package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/flo-mic/absprovision/internal/config"
)

// Login returns the login command.
func Login(root *rootOptions) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an ABS token in the fog file",
		Long: `Login writes the ABS token used to return hosts to the fog file
($FOG_RC, default ~/.fog). Other credentials in the file are kept.

Without --token the token is prompted for when stdin is a terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(token) == "" {
				if !isTerminal(cmd.InOrStdin()) {
					return errors.New("--token is required when stdin is not a terminal")
				}
				var err error
				if token, err = promptToken(); err != nil {
					return err
				}
			}

			fog := config.FogFile{Path: root.cfg.FogPath}
			if err := fog.SaveToken("abs", strings.TrimSpace(token)); err != nil {
				return fmt.Errorf("saving token: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ABS token saved to %s\n", fog.Path)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "ABS token to store")

	return cmd
}

func isTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func promptToken() (string, error) {
	var token string
	if err := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("ABS token").
			Description("Issued by the ABS service for your user").
			EchoMode(huh.EchoModePassword).
			Value(&token).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("token cannot be empty")
				}
				return nil
			}),
	)).Run(); err != nil {
		return "", err
	}
	return token, nil
}
