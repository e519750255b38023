package ensimodel

// TileType is the immutable terrain classification of a tile.
type TileType uint8

const (
	TileCity TileType = iota
	TileDesert
	TileMountain
)

func (t TileType) String() string {
	switch t {
	case TileCity:
		return "City"
	case TileDesert:
		return "Desert"
	case TileMountain:
		return "Mountain"
	default:
		return "Unknown"
	}
}

// PlayerID identifies a player, 1..=8. Zero means neutral; 255 is
// reserved for the Fog sentinel in wire encodings and is never a real
// player ID.
type PlayerID uint8

const (
	NeutralID PlayerID = 0
	FogID     PlayerID = 255
)

// Owner wraps a PlayerID with an explicit "no owner" state, instead of
// overloading PlayerID zero (which spec.md reserves for "neutral" --
// neutral is a valid owner state, distinct from "no owner" only in name).
type Owner struct {
	player PlayerID
	set    bool
}

// NoOwner is the neutral/unowned state.
var NoOwner = Owner{}

// OwnedBy returns an Owner for player p.
func OwnedBy(p PlayerID) Owner {
	return Owner{player: p, set: true}
}

// IsNone reports whether the tile is neutral (unowned).
func (o Owner) IsNone() bool {
	return !o.set
}

// Player returns the owning player and whether one is set.
func (o Owner) Player() (PlayerID, bool) {
	return o.player, o.set
}

// Is reports whether o is owned by exactly p.
func (o Owner) Is(p PlayerID) bool {
	return o.set && o.player == p
}

// Tile is one cell of the Map.
type Tile struct {
	Type       TileType
	Owner      Owner
	Army       uint16
	Population uint32
}
