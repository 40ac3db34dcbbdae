package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/gidl59/pay4you-cards-luxury4/internal/domain/agent"

	"github.com/spf13/cobra"
)

func newListCmd(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List agent records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.open()
			if err != nil {
				return err
			}
			list, err := svc.agents.List(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), list)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ADDRESS\tNAME\tPHONE\tURL")
			for _, a := range list.Agents {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.Address, a.Name, a.Phone, a.URL)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <address>",
		Short: "Print one record as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.open()
			if err != nil {
				return err
			}
			a, err := svc.agents.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), svc.agents.View(a))
		},
	}
}

func newCreateCmd(opts *options) *cobra.Command {
	var (
		req       agent.CreateAgentRequest
		photoPath string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a record",
		Example: `  cardctl create --name "Mario Rossi" --phone "+39 333 0000000"
  cardctl create --name "Giulia Bianchi" --social instagram=giulia.b --extra role=Agent --photo portrait.jpg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.open()
			if err != nil {
				return err
			}

			var upload *agent.PhotoUpload
			if photoPath != "" {
				f, err := os.Open(photoPath)
				if err != nil {
					return err
				}
				defer f.Close()
				upload = &agent.PhotoUpload{Filename: photoPath, Content: f}
			}

			created, err := svc.agents.Create(cmd.Context(), &req, upload)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), svc.agents.View(created))
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Name, "name", "", "Display name (required)")
	f.StringVar(&req.Address, "address", "", "Explicit address instead of the derived one")
	f.StringVar(&req.Phone, "phone", "", "Phone number")
	f.StringVar(&req.WhatsApp, "whatsapp", "", "WhatsApp number")
	f.StringVar(&req.Email, "email", "", "Email address")
	f.StringVar(&req.Website, "website", "", "Website URL")
	f.StringToStringVar(&req.Social, "social", nil, "Social profiles as network=handle")
	f.StringToStringVar(&req.Extra, "extra", nil, "Extra fields as key=value (role, company, ...)")
	f.StringArrayVar(&req.AddressLines, "address-line", nil, "Postal address line (repeatable)")
	f.StringVar(&photoPath, "photo", "", "Photo file to upload")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <address>",
		Short: "Delete a record (slug scheme only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.open()
			if err != nil {
				return err
			}
			if err := svc.agents.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
