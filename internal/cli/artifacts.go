package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	authUsecase "github.com/gidl59/pay4you-cards-luxury4/internal/service/auth"
	cardUsecase "github.com/gidl59/pay4you-cards-luxury4/internal/service/card"

	"github.com/spf13/cobra"
)

func newVCardCmd(opts *options) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "vcard <address>",
		Short: "Write the vCard of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.open()
			if err != nil {
				return err
			}
			artifact, err := svc.cards.VCard(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeArtifact(cmd, artifact, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func newQRCmd(opts *options) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "qr <address>",
		Short: "Write the QR code PNG of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.open()
			if err != nil {
				return err
			}
			artifact, err := svc.cards.QR(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output == "" {
				output = artifact.Filename
			}
			return writeArtifact(cmd, artifact, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default <address>.png)")
	return cmd
}

func newHashSecretCmd() *cobra.Command {
	var secret string
	cmd := &cobra.Command{
		Use:   "hash-secret",
		Short: "Print the bcrypt hash for ADMIN_SECRET_HASH",
		Long:  "Reads the secret from --secret or from the first line of stdin.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				secret = strings.TrimRight(line, "\r\n")
			}
			hash, err := authUsecase.HashSecret(secret)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "Secret to hash (default: read stdin)")
	return cmd
}

func writeArtifact(cmd *cobra.Command, a *cardUsecase.Artifact, output string) error {
	if output == "" || output == "-" {
		_, err := cmd.OutOrStdout().Write(a.Body)
		return err
	}
	if err := os.WriteFile(output, a.Body, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", output, len(a.Body))
	return nil
}
