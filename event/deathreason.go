package event

// DeathReason describes what killed a player. Indices that were not sent are -1.
type DeathReason struct {
	SourcePlayerIndex     int    `json:"sourcePlayerIndex"`
	SourceNPCIndex        int    `json:"sourceNpcIndex"`
	SourceProjectileIndex int    `json:"sourceProjectileIndex"`
	SourceOtherIndex      int    `json:"sourceOtherIndex"`
	SourceProjectileType  int    `json:"sourceProjectileType"`
	SourceItemType        int    `json:"sourceItemType"`
	SourceItemPrefix      int    `json:"sourceItemPrefix"`
	CustomReason          string `json:"customReason,omitempty"`
}

// Flag bits preceding a serialized DeathReason.
const (
	DeathFromPlayer uint8 = 1 << iota
	DeathFromNPC
	DeathFromProjectile
	DeathFromOther
	DeathFromProjectileType
	DeathFromItemType
	DeathFromItemPrefix
	DeathCustomReason
)

func EmptyDeathReason() DeathReason {
	return DeathReason{
		SourcePlayerIndex:     -1,
		SourceNPCIndex:        -1,
		SourceProjectileIndex: -1,
		SourceOtherIndex:      -1,
		SourceProjectileType:  -1,
		SourceItemType:        -1,
		SourceItemPrefix:      -1,
	}
}
