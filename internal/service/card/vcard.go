package card

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/gidl59/pay4you-cards-luxury4/internal/domain/agent"
	"github.com/gidl59/pay4you-cards-luxury4/internal/pkg/address"
	photosvc "github.com/gidl59/pay4you-cards-luxury4/internal/service/photo"

	"github.com/emersion/go-vcard"
)

const fieldSocialProfile = "X-SOCIALPROFILE"

// EncodeVCard writes a vCard 3.0 document. Empty fields produce no line.
func (s *CardService) EncodeVCard(a *agent.Agent) ([]byte, error) {
	card := make(vcard.Card)
	card.SetValue(vcard.FieldVersion, "3.0")
	card.SetValue(vcard.FieldFormattedName, a.Name)
	card.SetName(splitName(a.Name))

	if a.Phone != "" {
		card.AddValue(vcard.FieldTelephone, a.Phone)
	}
	if a.Email != "" {
		card.AddValue(vcard.FieldEmail, a.Email)
	}
	if a.Website != "" {
		card.AddValue(vcard.FieldURL, a.Website)
	}
	if link := WhatsAppLink(a.WhatsApp); link != "" {
		card.Add(vcard.FieldURL, &vcard.Field{
			Value:  link,
			Params: vcard.Params{vcard.ParamType: {"whatsapp"}},
		})
	}
	if len(a.AddressLines) > 0 {
		card.AddAddress(&vcard.Address{StreetAddress: component(strings.Join(a.AddressLines, ", "))})
	}
	if company := a.Company(); company != "" {
		card.SetValue(vcard.FieldOrganization, component(company))
	}
	if role := a.Role(); role != "" {
		card.SetValue(vcard.FieldTitle, role)
	}

	networks := make([]string, 0, len(a.Social))
	for network := range a.Social {
		networks = append(networks, network)
	}
	sort.Strings(networks)
	for _, network := range networks {
		// TYPE is a parameter value: only slug-shaped names are safe there
		typ := address.Slugify(network)
		if typ == "" {
			continue
		}
		card.Add(fieldSocialProfile, &vcard.Field{
			Value:  a.Social[network],
			Params: vcard.Params{vcard.ParamType: {typ}},
		})
	}

	if ref := photosvc.NormalizeRef(a.Photo); ref != "" {
		card.Add(vcard.FieldPhoto, &vcard.Field{
			Value:  s.baseURL + "/photos/" + ref,
			Params: vcard.Params{vcard.ParamValue: {"uri"}},
		})
	}
	card.AddValue(vcard.FieldURL, s.CanonicalURL(a.Address))

	var buf bytes.Buffer
	if err := vcard.NewEncoder(&buf).Encode(card); err != nil {
		return nil, fmt.Errorf("failed to encode vcard: %w", err)
	}
	return buf.Bytes(), nil
}

// component makes s safe inside a structured value (N, ADR, ORG). The
// encoder escapes commas but not ';', which would start a new component.
func component(s string) string {
	return strings.ReplaceAll(s, ";", ",")
}

// splitName treats the last word as the family name.
func splitName(full string) *vcard.Name {
	words := strings.Fields(component(full))
	switch len(words) {
	case 0:
		return &vcard.Name{}
	case 1:
		return &vcard.Name{GivenName: words[0]}
	default:
		return &vcard.Name{
			GivenName:  strings.Join(words[:len(words)-1], " "),
			FamilyName: words[len(words)-1],
		}
	}
}
