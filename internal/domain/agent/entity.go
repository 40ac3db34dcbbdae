// internal/domain/agent/entity.go
package agent

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gidl59/pay4you-cards-luxury4/internal/pkg/address"
)

// Agent is the persisted contact-profile record behind a card.
type Agent struct {
	// Address is never written to disk: it is the array index or the map key.
	Address string `json:"-"`

	Name         string            `json:"name"`
	Phone        string            `json:"phone,omitempty"`
	WhatsApp     string            `json:"whatsapp,omitempty"`
	Email        string            `json:"email,omitempty"`
	Website      string            `json:"website,omitempty"`
	Social       map[string]string `json:"social,omitempty"`
	AddressLines []string          `json:"address_lines,omitempty"`
	Photo        string            `json:"photo,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Well-known Extra keys used by the card artifacts.
const (
	ExtraRole    = "role"
	ExtraCompany = "company"
	ExtraGallery = "gallery"
)

var knownKeys = map[string]bool{
	"name": true, "phone": true, "whatsapp": true, "email": true, "website": true,
	"social": true, "address_lines": true, "photo": true, "extra": true,
	"created_at": true, "updated_at": true,
}

type agentAlias Agent

// UnmarshalJSON accepts records written by older tools: unknown top-level keys
// holding strings land in Extra, nulls are skipped, anything else is rejected.
func (a *Agent) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var alias agentAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	for key, value := range raw {
		if knownKeys[key] {
			continue
		}
		if string(value) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return fmt.Errorf("field %q must be a string", key)
		}
		if alias.Extra == nil {
			alias.Extra = make(map[string]string)
		}
		if _, exists := alias.Extra[key]; !exists {
			alias.Extra[key] = s
		}
	}

	*a = Agent(alias)
	return nil
}

// Normalize trims every text field and drops empty entries.
func (a *Agent) Normalize() {
	a.Name = strings.TrimSpace(a.Name)
	a.Phone = strings.TrimSpace(a.Phone)
	a.WhatsApp = strings.TrimSpace(a.WhatsApp)
	a.Email = strings.TrimSpace(a.Email)
	a.Website = strings.TrimSpace(a.Website)
	a.Photo = strings.TrimSpace(a.Photo)
	a.Social = cleanSocial(a.Social)
	a.Extra = cleanMap(a.Extra)
	a.AddressLines = cleanLines(a.AddressLines)
}

// Validate checks the record shape. It expects Normalize to have run.
func (a *Agent) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("name is required")
	}
	for k := range a.Extra {
		if k == "" {
			return fmt.Errorf("extra field names must not be empty")
		}
	}
	for k := range a.Social {
		if k == "" {
			return fmt.Errorf("social network names must not be empty")
		}
		if !(address.Slug{}).Canonical(k) {
			return fmt.Errorf("social network name %q may only hold lower-case letters, digits and '-'", k)
		}
	}
	return nil
}

// Clone returns a deep copy so callers never share maps with the store.
func (a *Agent) Clone() *Agent {
	if a == nil {
		return nil
	}
	out := *a
	out.Social = copyMap(a.Social)
	out.Extra = copyMap(a.Extra)
	if a.AddressLines != nil {
		out.AddressLines = append([]string(nil), a.AddressLines...)
	}
	return &out
}

// Role and Company read the matching Extra entries.
func (a *Agent) Role() string    { return a.Extra[ExtraRole] }
func (a *Agent) Company() string { return a.Extra[ExtraCompany] }

func cleanMap(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SocialKey is the stored form of a social network name. A name with no
// usable characters is returned trimmed so Validate can report it.
func SocialKey(name string) string {
	if key := address.Slugify(name); key != "" {
		return key
	}
	return strings.TrimSpace(name)
}

func cleanSocial(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	names := make([]string, 0, len(in))
	for k := range in {
		names = append(names, k)
	}
	// keys folding to the same network resolve in a fixed order
	sort.Strings(names)

	out := make(map[string]string, len(in))
	for _, k := range names {
		v := strings.TrimSpace(in[k])
		if v == "" {
			continue
		}
		out[SocialKey(k)] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func cleanLines(in []string) []string {
	var out []string
	for _, line := range in {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func copyMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
