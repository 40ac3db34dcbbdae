package cli

import (
	"fmt"
	"time"

	"github.com/gidl59/pay4you-cards-luxury4/internal/domain/agent"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type exportDocument struct {
	Scheme     string         `json:"scheme" yaml:"scheme"`
	ExportedAt time.Time      `json:"exported_at" yaml:"exported_at"`
	Total      int            `json:"total" yaml:"total"`
	Agents     []exportRecord `json:"agents" yaml:"agents"`
}

type exportRecord struct {
	Address      string            `json:"address" yaml:"address"`
	URL          string            `json:"url" yaml:"url"`
	Name         string            `json:"name" yaml:"name"`
	Phone        string            `json:"phone,omitempty" yaml:"phone,omitempty"`
	WhatsApp     string            `json:"whatsapp,omitempty" yaml:"whatsapp,omitempty"`
	Email        string            `json:"email,omitempty" yaml:"email,omitempty"`
	Website      string            `json:"website,omitempty" yaml:"website,omitempty"`
	Social       map[string]string `json:"social,omitempty" yaml:"social,omitempty"`
	AddressLines []string          `json:"address_lines,omitempty" yaml:"address_lines,omitempty"`
	Photo        string            `json:"photo,omitempty" yaml:"photo,omitempty"`
	Extra        map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"`
	CreatedAt    time.Time         `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at" yaml:"updated_at"`
}

func newExportRecord(v *agent.AgentView) exportRecord {
	return exportRecord{
		Address:      v.Address,
		URL:          v.URL,
		Name:         v.Name,
		Phone:        v.Phone,
		WhatsApp:     v.WhatsApp,
		Email:        v.Email,
		Website:      v.Website,
		Social:       v.Social,
		AddressLines: v.AddressLines,
		Photo:        v.Photo,
		Extra:        v.Extra,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
}

func newExportCmd(opts *options) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every record as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "yaml" {
				return fmt.Errorf("unknown format %q (want json or yaml)", format)
			}

			svc, err := opts.open()
			if err != nil {
				return err
			}
			list, err := svc.agents.List(cmd.Context())
			if err != nil {
				return err
			}

			doc := exportDocument{
				Scheme:     list.Scheme,
				ExportedAt: time.Now().UTC(),
				Total:      list.Total,
				Agents:     make([]exportRecord, 0, len(list.Agents)),
			}
			for _, v := range list.Agents {
				doc.Agents = append(doc.Agents, newExportRecord(v))
			}

			if format == "json" {
				return writeJSON(cmd.OutOrStdout(), doc)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(doc); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json or yaml")
	return cmd
}
