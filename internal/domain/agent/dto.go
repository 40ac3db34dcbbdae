// internal/domain/agent/dto.go
package agent

import (
	"io"
	"strings"
)

type CreateAgentRequest struct {
	// Address is optional; when empty the identifier scheme derives one.
	Address      string            `json:"address" form:"address"`
	Name         string            `json:"name" form:"name" binding:"required,max=255"`
	Phone        string            `json:"phone" form:"phone" binding:"max=64"`
	WhatsApp     string            `json:"whatsapp" form:"whatsapp" binding:"max=64"`
	Email        string            `json:"email" form:"email" binding:"max=255"`
	Website      string            `json:"website" form:"website" binding:"max=512"`
	Social       map[string]string `json:"social" form:"-"`
	AddressLines []string          `json:"address_lines" form:"address_lines"`
	Extra        map[string]string `json:"extra" form:"-"`
	// Gallery is the top-level field of the first release's form; it lands
	// in Extra.
	Gallery string `json:"gallery" form:"gallery"`
}

// ToAgent builds a fresh record from the request.
func (r *CreateAgentRequest) ToAgent() *Agent {
	a := &Agent{
		Address:      strings.TrimSpace(r.Address),
		Name:         r.Name,
		Phone:        r.Phone,
		WhatsApp:     r.WhatsApp,
		Email:        r.Email,
		Website:      r.Website,
		Social:       copyMap(r.Social),
		AddressLines: append([]string(nil), r.AddressLines...),
		Extra:        copyMap(r.Extra),
	}
	if g := strings.TrimSpace(r.Gallery); g != "" {
		if a.Extra == nil {
			a.Extra = make(map[string]string, 1)
		}
		a.Extra[ExtraGallery] = g
	}
	a.Normalize()
	return a
}

// UpdateAgentRequest is a partial update: nil fields are left untouched.
type UpdateAgentRequest struct {
	Name         *string           `json:"name" form:"name" binding:"omitempty,max=255"`
	Phone        *string           `json:"phone" form:"phone" binding:"omitempty,max=64"`
	WhatsApp     *string           `json:"whatsapp" form:"whatsapp" binding:"omitempty,max=64"`
	Email        *string           `json:"email" form:"email" binding:"omitempty,max=255"`
	Website      *string           `json:"website" form:"website" binding:"omitempty,max=512"`
	Social       map[string]string `json:"social" form:"-"`
	AddressLines []string          `json:"address_lines" form:"address_lines"`
	Extra        map[string]string `json:"extra" form:"-"`
	Gallery      *string           `json:"gallery" form:"gallery"`
}

// IsEmpty reports whether the request names no field at all.
func (r *UpdateAgentRequest) IsEmpty() bool {
	return r.Name == nil && r.Phone == nil && r.WhatsApp == nil && r.Email == nil &&
		r.Website == nil && r.Social == nil && r.AddressLines == nil && r.Extra == nil && r.Gallery == nil
}

// Apply merges the request over a. Map entries with an empty value are
// removed; a non-nil AddressLines replaces the whole list.
func (r *UpdateAgentRequest) Apply(a *Agent) {
	setIf(&a.Name, r.Name)
	setIf(&a.Phone, r.Phone)
	setIf(&a.WhatsApp, r.WhatsApp)
	setIf(&a.Email, r.Email)
	setIf(&a.Website, r.Website)

	a.Social = mergeMap(a.Social, socialPatch(r.Social))
	a.Extra = mergeMap(a.Extra, r.Extra)
	if r.Gallery != nil {
		a.Extra = mergeMap(a.Extra, map[string]string{ExtraGallery: *r.Gallery})
	}

	if r.AddressLines != nil {
		a.AddressLines = append([]string(nil), r.AddressLines...)
	}
	a.Normalize()
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func socialPatch(patch map[string]string) map[string]string {
	if patch == nil {
		return nil
	}
	out := make(map[string]string, len(patch))
	for k, v := range patch {
		out[SocialKey(k)] = v
	}
	return out
}

func mergeMap(dst, patch map[string]string) map[string]string {
	if patch == nil {
		return dst
	}
	out := copyMap(dst)
	if out == nil {
		out = make(map[string]string, len(patch))
	}
	for k, v := range patch {
		k = strings.TrimSpace(k)
		if strings.TrimSpace(v) == "" {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

// PhotoUpload carries an uploaded image alongside a create or update.
type PhotoUpload struct {
	Filename string
	Content  io.Reader
}

// AgentView is a record as the admin API returns it, with the address that
// the stored form leaves implicit.
type AgentView struct {
	Address string `json:"address"`
	URL     string `json:"url,omitempty"`
	*Agent
}

func NewAgentView(a *Agent, url string) *AgentView {
	return &AgentView{Address: a.Address, URL: url, Agent: a}
}

type AgentListResponse struct {
	Agents []*AgentView `json:"agents"`
	Total  int          `json:"total"`
	Scheme string       `json:"scheme"`
}

type AddressAvailability struct {
	Address   string `json:"address"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}
