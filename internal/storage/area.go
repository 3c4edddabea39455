// Package storage defines the backend areas, the uniform backend
// contract, and the error classification applied to every backend
// failure.
//
// Two areas exist: a size-constrained replicated area whose contents
// follow the user across devices, and a larger local-only area. Both
// expose the same get/set/remove contract and can fail independently.
package storage

// Area identifies one of the two backend stores.
type Area uint8

const (
	// AreaReplicated is the size-constrained, cross-device store.
	AreaReplicated Area = iota

	// AreaLocal is the larger-capacity, single-device store.
	AreaLocal
)

// String returns the area name.
func (a Area) String() string {
	switch a {
	case AreaReplicated:
		return "replicated"
	case AreaLocal:
		return "local"
	default:
		return "unknown"
	}
}

// Areas lists both areas with the replicated area first. Multi-area
// operations report the replicated area's result first.
func Areas() []Area {
	return []Area{AreaReplicated, AreaLocal}
}
