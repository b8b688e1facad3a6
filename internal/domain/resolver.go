package domain

// ComponentMapping maps each address tier to the provider component type that
// represents it.
type ComponentMapping struct {
	Locality string
	District string
	State    string
	Country  string
}

// DefaultComponentMapping uses the Google Geocoding API component types.
func DefaultComponentMapping() ComponentMapping {
	return ComponentMapping{
		Locality: "locality",
		District: "administrative_area_level_2",
		State:    "administrative_area_level_1",
		Country:  "country",
	}
}

// AddressResolver extracts a ResolvedAddress from geocode candidates.
// It performs no I/O.
type AddressResolver struct {
	mapping ComponentMapping
}

// NewAddressResolver creates a resolver for the given component mapping.
func NewAddressResolver(mapping ComponentMapping) *AddressResolver {
	return &AddressResolver{mapping: mapping}
}

// Resolve scans the candidates once per tier. It returns ErrResolutionFailed
// when no tier matched; any partial result is returned as-is.
func (r *AddressResolver) Resolve(candidates []GeocodeCandidate) (ResolvedAddress, error) {
	addr := ResolvedAddress{
		Locality: firstNameOfType(candidates, r.mapping.Locality),
		District: firstNameOfType(candidates, r.mapping.District),
		State:    firstNameOfType(candidates, r.mapping.State),
		Country:  firstNameOfType(candidates, r.mapping.Country),
	}
	if addr.IsEmpty() {
		return ResolvedAddress{}, ErrResolutionFailed
	}
	return addr, nil
}

// firstNameOfType returns the long name of the first component of type t in
// the first candidate that has one, or nil.
func firstNameOfType(candidates []GeocodeCandidate, t string) *string {
	if t == "" {
		return nil
	}
	for _, c := range candidates {
		comps := c.ComponentsOfType(t)
		if len(comps) == 0 {
			continue
		}
		// The first matching candidate decides the tier, even if its name is blank.
		if comps[0].LongName == "" {
			return nil
		}
		name := comps[0].LongName
		return &name
	}
	return nil
}
