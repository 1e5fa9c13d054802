package query

import "strings"

// SortKey is one (key, direction) pair of a sort request.
type SortKey struct {
	Key  string
	Desc bool
}

func (k SortKey) String() string {
	if k.Desc {
		return k.Key + ":desc"
	}
	return k.Key + ":asc"
}

// Order is a native ordering handed to the store.
type Order struct {
	Key  string
	Path Path
	Desc bool
}

// ParseSort parses "key:dir,key2:dir". Direction is case-insensitive and
// anything other than "desc" sorts ascending.
func ParseSort(s string) []SortKey {
	var keys []SortKey
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, dir, _ := strings.Cut(part, ":")
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		keys = append(keys, SortKey{
			Key:  key,
			Desc: strings.EqualFold(strings.TrimSpace(dir), "desc"),
		})
	}
	return keys
}

// SortPlan is a sort request split into the part the store applies and the
// single virtual key applied after projection.
type SortPlan struct {
	Native  []Order
	Virtual *SortKey
	// VirtualKind is the value kind of the virtual key.
	VirtualKind ValueKind
}

// PlanSort resolves keys against the catalog. Unknown keys are dropped; when
// none resolves the catalog default is used. Only the first virtual key is
// honored. The id field always ends the native ordering so equal keys keep a
// stable order across pages.
func (c *Catalog) PlanSort(keys []SortKey) SortPlan {
	var plan SortPlan
	seen := make(map[string]bool)
	resolved := 0
	for _, k := range keys {
		f, ok := c.fields[k.Key]
		if !ok || seen[k.Key] {
			continue
		}
		seen[k.Key] = true
		switch f.Kind {
		case Native:
			plan.Native = append(plan.Native, Order{Key: f.Key, Path: f.Path, Desc: k.Desc})
			resolved++
		case Virtual:
			if plan.Virtual != nil {
				continue
			}
			vk := k
			plan.Virtual = &vk
			plan.VirtualKind = f.Value
			resolved++
		}
	}
	if resolved == 0 {
		def := c.fields[c.DefaultSort.Key]
		plan.Native = []Order{{Key: def.Key, Path: def.Path, Desc: c.DefaultSort.Desc}}
		seen[def.Key] = true
	}
	if !seen[c.IDKey] {
		id := c.fields[c.IDKey]
		plan.Native = append(plan.Native, Order{Key: id.Key, Path: id.Path})
	}
	return plan
}
