package domain

// CageType is the subtype of a cage, resolved by collection membership.
type CageType string

// Cage types. Unknown is returned for ids present in neither typed collection.
const (
	CageTypeHolding  CageType = "holding"
	CageTypeBreeding CageType = "breeding"
	CageTypeUnknown  CageType = "unknown"
)

// Short returns the abbreviation used on cage cards (HC, BC).
func (t CageType) Short() string {
	switch t {
	case CageTypeHolding:
		return "HC"
	case CageTypeBreeding:
		return "BC"
	default:
		return "Unknown"
	}
}

// CageInfo is the normalized display record for a cage of any type.
// Placeholder infos stand in for parent ids that resolve to no stored cage;
// they carry only the id.
type CageInfo struct {
	CageID       string     `json:"cage_id" db:"cage_id"`
	Type         CageType   `json:"type" db:"-"`
	Label        string     `json:"label,omitempty" db:"label"`
	Status       CageStatus `json:"status,omitempty" db:"status"`
	ParentCageID *string    `json:"parent_cage_id,omitempty" db:"parent_cage_id"`
	Placeholder  bool       `json:"placeholder,omitempty" db:"-"`
}

// PlaceholderInfo synthesizes the info for an id that is not stored.
func PlaceholderInfo(cageID string) CageInfo {
	return CageInfo{CageID: cageID, Type: CageTypeUnknown, Placeholder: true}
}

// LineageEdge is one stored parent pointer, child → parent.
type LineageEdge struct {
	ChildID  string `json:"child_id" db:"cage_id"`
	ParentID string `json:"parent_id" db:"parent_cage_id"`
}

// LineageNode is a cage in a descendant tree. Depth is the recursion depth at
// which the node was discovered (direct children are depth 0). Truncated means
// the node sits at the depth cap and its children were not scanned. It says
// nothing about whether deeper rows exist: a leaf at the cap is still flagged.
type LineageNode struct {
	CageInfo
	Depth     int           `json:"depth"`
	Children  []LineageNode `json:"children"`
	Truncated bool          `json:"truncated,omitempty"`
}

// LineageTree is a root cage with its descendant tree, as listed in the forest.
type LineageTree struct {
	Root        CageInfo      `json:"root"`
	Descendants []LineageNode `json:"descendants"`
}

// LineageDirection selects which half of a lineage view is computed.
type LineageDirection string

// Lineage directions.
const (
	DirectionBoth LineageDirection = "both"
	DirectionUp   LineageDirection = "up"
	DirectionDown LineageDirection = "down"
)

// Valid reports whether d is a known direction.
func (d LineageDirection) Valid() bool {
	return d == DirectionBoth || d == DirectionUp || d == DirectionDown
}

// LineageView combines the ancestor chain and the descendant tree of a cage.
// AncestorsTruncated is set when the hop bound stopped the parent walk while
// further parents remained.
type LineageView struct {
	Subject            CageInfo         `json:"subject"`
	Direction          LineageDirection `json:"direction"`
	Ancestors          []CageInfo       `json:"ancestors"`
	AncestorsTruncated bool             `json:"ancestors_truncated,omitempty"`
	Descendants        []LineageNode    `json:"descendants"`
}
