package auction

// Config holds the engine's constant parameters (spec §5, "Configuration
// constants"). All of them are supplied once at Engine construction and
// never change for the life of the engine.
type Config struct {
	// MinBounty is the minimum bounty a new auction may post.
	MinBounty uint64
	// MinDeposit is the minimum skin-in-the-game deposit required of
	// every party.
	MinDeposit uint64
	// MaxDataSize is the maximum length, in bytes, of an auction's
	// opaque data payload.
	MaxDataSize int
}

// DefaultConfig returns the reference parameters used throughout this
// repo's test scenarios.
func DefaultConfig() Config {
	return Config{
		MinBounty:   500,
		MinDeposit:  100,
		MaxDataSize: 16,
	}
}
