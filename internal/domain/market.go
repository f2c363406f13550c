package domain

// MarketKind distinguishes token markets from the native-currency market.
// The kind is fixed at construction time; callers never infer it from a
// failed underlying-asset lookup.
type MarketKind int

const (
	// MarketERC20 is a market over a token with an underlying asset symbol.
	MarketERC20 MarketKind = iota
	// MarketNative is the native-currency market; it has no underlying token.
	MarketNative
)

// Market is a tagged variant: either a token market with an underlying asset
// or the native-currency market.
type Market struct {
	Kind       MarketKind
	Underlying string // asset symbol; empty for MarketNative
}

// NewERC20Market constructs a token market for the given underlying asset.
func NewERC20Market(asset string) Market {
	return Market{Kind: MarketERC20, Underlying: asset}
}

// NewNativeMarket constructs the native-currency market.
func NewNativeMarket() Market {
	return Market{Kind: MarketNative}
}

// UnderlyingAsset returns the underlying asset symbol and whether one exists.
func (m Market) UnderlyingAsset() (string, bool) {
	if m.Kind == MarketNative {
		return "", false
	}
	return m.Underlying, true
}
