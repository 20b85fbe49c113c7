package nakama

const (
	// RpcQuickMatch is the Nakama RPC id clients call to find or create a kitchen that still admits players.
	RpcQuickMatch = "quick_match"

	// MatchNameKitchen is the authoritative match handler name registered with Nakama.
	MatchNameKitchen = "kitchen_match"

	// LabelGame is the value of the "game" key in every kitchen match label.
	LabelGame = "kitchen"
)

// Runtime environment keys read in MatchInit.
const (
	EnvKitchenConfig = "kitchen_config_path"
	EnvTickRate      = "kitchen_tick_rate"
)

const defaultTickRate = 20
