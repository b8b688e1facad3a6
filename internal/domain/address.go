package domain

// AddressComponent is one tagged part of a geocoded address.
type AddressComponent struct {
	LongName  string
	ShortName string
	Types     []string
}

// HasType reports whether the component is tagged with t.
func (c AddressComponent) HasType(t string) bool {
	for _, typ := range c.Types {
		if typ == t {
			return true
		}
	}
	return false
}

// GeocodeCandidate is one result returned by a geocoding provider, with its
// components in provider order.
type GeocodeCandidate struct {
	FormattedAddress string
	Components       []AddressComponent
}

// ComponentsOfType returns the components tagged with t, in order.
func (c GeocodeCandidate) ComponentsOfType(t string) []AddressComponent {
	var out []AddressComponent
	for _, comp := range c.Components {
		if comp.HasType(t) {
			out = append(out, comp)
		}
	}
	return out
}

// ResolvedAddress is the four-tier administrative decomposition of a location.
// A nil field means the tier could not be resolved.
type ResolvedAddress struct {
	Locality *string `json:"locality,omitempty"`
	District *string `json:"district,omitempty"`
	State    *string `json:"state,omitempty"`
	Country  *string `json:"country,omitempty"`
}

// IsEmpty reports whether no tier is present.
func (a ResolvedAddress) IsEmpty() bool {
	return a.Locality == nil && a.District == nil && a.State == nil && a.Country == nil
}

// Fields returns the present tiers keyed by their document field name.
func (a ResolvedAddress) Fields() map[string]string {
	out := make(map[string]string, 4)
	set := func(key string, v *string) {
		if v != nil {
			out[key] = *v
		}
	}
	set("locality", a.Locality)
	set("district", a.District)
	set("state", a.State)
	set("country", a.Country)
	return out
}
