package types

// BrokerCapabilities declares what a venue natively supports so the broker
// layer knows what it must compensate for (e.g. simulating protective exits
// locally when the venue has no native bracket orders).
type BrokerCapabilities struct {
	// SupportsMarketEntry is true if the venue accepts market orders.
	SupportsMarketEntry bool `yaml:"supports_market_entry" json:"supports_market_entry"`
	// SupportsProtectiveExits is true if stop and target legs can be
	// attached natively at the venue.
	SupportsProtectiveExits bool `yaml:"supports_protective_exits" json:"supports_protective_exits"`
	// EnforcesPrecisionRules is true if the venue rejects quantities finer
	// than its lot precision.
	EnforcesPrecisionRules bool `yaml:"enforces_precision_rules" json:"enforces_precision_rules"`
	// Notes is free-form operator guidance for the venue.
	Notes string `yaml:"notes" json:"notes"`
}
