// internal/service/card/card_service.go
package card

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/gidl59/pay4you-cards-luxury4/internal/domain/agent"
	"github.com/gidl59/pay4you-cards-luxury4/internal/pkg/address"
	photosvc "github.com/gidl59/pay4you-cards-luxury4/internal/service/photo"

	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const DefaultQRSize = 256

type Config struct {
	BaseURL string
	QRSize  int
}

// View is the public card: the record plus the links a page needs.
type View struct {
	Address      string            `json:"address"`
	URL          string            `json:"url"`
	QRURL        string            `json:"qr_url"`
	VCardURL     string            `json:"vcard_url"`
	PhotoURL     string            `json:"photo_url,omitempty"`
	Name         string            `json:"name"`
	Role         string            `json:"role,omitempty"`
	Company      string            `json:"company,omitempty"`
	Phone        string            `json:"phone,omitempty"`
	WhatsApp     string            `json:"whatsapp,omitempty"`
	WhatsAppURL  string            `json:"whatsapp_url,omitempty"`
	Email        string            `json:"email,omitempty"`
	Website      string            `json:"website,omitempty"`
	Social       map[string]string `json:"social,omitempty"`
	AddressLines []string          `json:"address_lines,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Artifact is a generated download. It is never persisted.
type Artifact struct {
	ContentType string
	Filename    string
	Body        []byte
	ETag        string
	ModTime     time.Time
}

type CardService struct {
	repo    agent.Repository
	baseURL string
	qrSize  int
	logger  *zap.Logger
}

func NewCardService(repo agent.Repository, cfg Config, logger *zap.Logger) *CardService {
	if cfg.QRSize <= 0 {
		cfg.QRSize = DefaultQRSize
	}
	return &CardService{
		repo:    repo,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		qrSize:  cfg.QRSize,
		logger:  logger,
	}
}

// CanonicalURL is the public URL of the card at addr.
func (s *CardService) CanonicalURL(addr string) string {
	return address.CanonicalURL(s.baseURL, addr)
}

func (s *CardService) View(ctx context.Context, addr string) (*View, error) {
	a, err := s.repo.Get(ctx, addr)
	if err != nil {
		return nil, err
	}
	return s.BuildView(a), nil
}

// BuildView renders a record that has already been loaded.
func (s *CardService) BuildView(a *agent.Agent) *View {
	url := s.CanonicalURL(a.Address)
	v := &View{
		Address:      a.Address,
		URL:          url,
		QRURL:        url + "/qr",
		VCardURL:     url + "/vcard",
		Name:         a.Name,
		Role:         a.Role(),
		Company:      a.Company(),
		Phone:        a.Phone,
		WhatsApp:     a.WhatsApp,
		WhatsAppURL:  WhatsAppLink(a.WhatsApp),
		Email:        a.Email,
		Website:      a.Website,
		Social:       a.Social,
		AddressLines: a.AddressLines,
		Extra:        a.Extra,
		UpdatedAt:    a.UpdatedAt,
	}
	if ref := photosvc.NormalizeRef(a.Photo); ref != "" {
		v.PhotoURL = s.baseURL + "/photos/" + ref
	}
	return v
}

// QR renders a PNG whose payload is exactly the canonical card URL.
func (s *CardService) QR(ctx context.Context, addr string) (*Artifact, error) {
	a, err := s.repo.Get(ctx, addr)
	if err != nil {
		return nil, err
	}

	png, err := qrcode.Encode(s.CanonicalURL(a.Address), qrcode.Medium, s.qrSize)
	if err != nil {
		s.logger.Error("failed to encode qr code", zap.String("address", addr), zap.Error(err))
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}

	return &Artifact{
		ContentType: "image/png",
		Filename:    a.Address + ".png",
		Body:        png,
		ETag:        s.etag("qr", a),
		ModTime:     a.UpdatedAt,
	}, nil
}

// VCard renders a vCard 3.0 contact for the record at addr.
func (s *CardService) VCard(ctx context.Context, addr string) (*Artifact, error) {
	a, err := s.repo.Get(ctx, addr)
	if err != nil {
		return nil, err
	}

	body, err := s.EncodeVCard(a)
	if err != nil {
		s.logger.Error("failed to encode vcard", zap.String("address", addr), zap.Error(err))
		return nil, err
	}

	return &Artifact{
		ContentType: "text/vcard; charset=utf-8",
		Filename:    a.Address + ".vcf",
		Body:        body,
		ETag:        s.etag("vcard", a),
		ModTime:     a.UpdatedAt,
	}, nil
}

// etag changes whenever the record or the public base URL changes.
func (s *CardService) etag(kind string, a *agent.Agent) string {
	sum := sha256.Sum256([]byte(kind + "\x00" + s.baseURL + "\x00" + a.Address + "\x00" + a.UpdatedAt.UTC().Format(time.RFC3339Nano)))
	return `"` + hex.EncodeToString(sum[:12]) + `"`
}

// WhatsAppLink turns a phone number into a wa.me link, or "" when it holds
// no digits.
func WhatsAppLink(number string) string {
	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "https://wa.me/" + b.String()
}
