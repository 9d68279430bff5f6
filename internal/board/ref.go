package board

// legacyKey is the well-known document identity used before boards
// got generated ids. Existing deployments still have their board
// stored under it.
const legacyKey = "shared-bingo-board"

// Ref names one persisted board: either the single legacy document or
// a board in the current id scheme. The zero value is the legacy ref.
type Ref struct {
	id string
}

// CurrentRef points at a board stored under a generated id.
func CurrentRef(id string) Ref { return Ref{id: id} }

// LegacyRef points at the single well-known legacy document.
func LegacyRef() Ref { return Ref{} }

// ParseRef maps a request identifier onto a Ref. An empty id or the
// legacy key itself resolves to the legacy document.
func ParseRef(id string) Ref {
	if id == "" || id == legacyKey {
		return LegacyRef()
	}
	return CurrentRef(id)
}

func (r Ref) IsLegacy() bool { return r.id == "" }

// Key is the storage identity the ref resolves to.
func (r Ref) Key() string {
	if r.id == "" {
		return legacyKey
	}
	return r.id
}
