package jsonfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/gidl59/pay4you-cards-luxury4/internal/domain/agent"
	"github.com/gidl59/pay4you-cards-luxury4/internal/pkg/address"
)

// collection is the in-memory form of the whole document during one
// operation. order is store order; items is keyed by address.
type collection struct {
	keyed bool
	order []string
	items map[string]*agent.Agent
}

func newCollection(keyed bool) *collection {
	return &collection{keyed: keyed, items: make(map[string]*agent.Agent)}
}

func (c *collection) get(addr string) (*agent.Agent, bool) {
	a, ok := c.items[addr]
	return a, ok
}

func (c *collection) add(a *agent.Agent) {
	c.order = append(c.order, a.Address)
	c.items[a.Address] = a
}

func (c *collection) replace(a *agent.Agent) {
	c.items[a.Address] = a
}

func (c *collection) remove(addr string) {
	delete(c.items, addr)
	for i, v := range c.order {
		if v == addr {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func (c *collection) list() []*agent.Agent {
	out := make([]*agent.Agent, 0, len(c.order))
	for _, addr := range c.order {
		out = append(out, c.items[addr].Clone())
	}
	return out
}

// document is what gets serialized: an array for positional stores and an
// object keyed by address for slug stores.
func (c *collection) document() any {
	if c.keyed {
		return c.items
	}
	out := make([]*agent.Agent, 0, len(c.order))
	for _, addr := range c.order {
		out = append(out, c.items[addr])
	}
	return out
}

// decodeCollection parses either layout. A slug store reading a legacy array
// keeps each record's index as its address, so old links stay valid.
func decodeCollection(data []byte, scheme address.Scheme) (*collection, error) {
	c := newCollection(scheme.Keyed())
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return c, nil
	}

	switch data[0] {
	case '[':
		var list []*agent.Agent
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, err
		}
		for i, a := range list {
			if a == nil {
				return nil, fmt.Errorf("record %d is null", i)
			}
			a.Address = strconv.Itoa(i)
			c.add(a)
		}
		return c, nil

	case '{':
		var byAddr map[string]*agent.Agent
		if err := json.Unmarshal(data, &byAddr); err != nil {
			return nil, err
		}
		if !scheme.Keyed() {
			for i := 0; i < len(byAddr); i++ {
				addr := strconv.Itoa(i)
				a, ok := byAddr[addr]
				if !ok || a == nil {
					return nil, fmt.Errorf("positional store has no record at index %d", i)
				}
				a.Address = addr
				c.add(a)
			}
			return c, nil
		}

		list := make([]*agent.Agent, 0, len(byAddr))
		for addr, a := range byAddr {
			if a == nil {
				return nil, fmt.Errorf("record %q is null", addr)
			}
			a.Address = addr
			list = append(list, a)
		}
		sort.Slice(list, func(i, j int) bool {
			if list[i].CreatedAt.Equal(list[j].CreatedAt) {
				return list[i].Address < list[j].Address
			}
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		})
		for _, a := range list {
			c.add(a)
		}
		return c, nil

	default:
		return nil, fmt.Errorf("expected a JSON array or object")
	}
}
