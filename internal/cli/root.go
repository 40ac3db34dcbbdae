// Package cli implements the cardctl operator commands. They work directly on
// the record file and share its lock with a running server.
package cli

import (
	"fmt"
	"os"

	"github.com/gidl59/pay4you-cards-luxury4/internal/pkg/address"
	"github.com/gidl59/pay4you-cards-luxury4/internal/repository/jsonfile"
	"github.com/gidl59/pay4you-cards-luxury4/internal/repository/photos"
	agentUsecase "github.com/gidl59/pay4you-cards-luxury4/internal/service/agent"
	cardUsecase "github.com/gidl59/pay4you-cards-luxury4/internal/service/card"
	photoUsecase "github.com/gidl59/pay4you-cards-luxury4/internal/service/photo"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	file      string
	scheme    string
	baseURL   string
	uploadDir string
	verbose   bool
}

type services struct {
	agents *agentUsecase.AgentService
	cards  *cardUsecase.CardService
	repo   *jsonfile.AgentRepository
}

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "cardctl",
		Short: "Manage the agent card directory",
		Long: `cardctl reads and edits the agent record file used by the card server.

Defaults come from the same environment variables as the server
(AGENTS_FILE, ID_SCHEME, BASE_URL, UPLOAD_DIR).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.file, "file", envOr("AGENTS_FILE", "agents.json"), "Agent record file")
	flags.StringVar(&opts.scheme, "scheme", envOr("ID_SCHEME", address.SchemeSlug), "Address scheme: slug or positional")
	flags.StringVar(&opts.baseURL, "base-url", envOr("BASE_URL", "http://localhost:10000"), "Public base URL of the card server")
	flags.StringVar(&opts.uploadDir, "upload-dir", envOr("UPLOAD_DIR", "static/uploads"), "Local photo directory")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")

	root.AddCommand(
		newListCmd(opts),
		newShowCmd(opts),
		newCreateCmd(opts),
		newDeleteCmd(opts),
		newExportCmd(opts),
		newVCardCmd(opts),
		newQRCmd(opts),
		newHashSecretCmd(),
	)
	return root
}

func (o *options) open() (*services, error) {
	scheme, err := address.New(o.scheme)
	if err != nil {
		return nil, err
	}
	repo, err := jsonfile.NewAgentRepository(o.file, scheme)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", o.file, err)
	}

	logger := zap.NewNop()
	if o.verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			return nil, err
		}
	}

	var photoService *photoUsecase.PhotoService
	if o.uploadDir != "" {
		store, err := photos.NewLocalStore(o.uploadDir)
		if err != nil {
			return nil, fmt.Errorf("open photo directory: %w", err)
		}
		photoService = photoUsecase.NewPhotoService(store, photoUsecase.Config{}, logger)
	}

	cards := cardUsecase.NewCardService(repo, cardUsecase.Config{BaseURL: o.baseURL}, logger)
	agents := agentUsecase.NewAgentService(repo, scheme, photoService, logger)
	agents.SetCardURL(cards.CanonicalURL)

	return &services{agents: agents, cards: cards, repo: repo}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
