package model

// PortfolioAsset is a single holding, e.g. shares of a firm or a bond.
type PortfolioAsset struct {
	AssetType string  `json:"asset_type"`
	AssetID   string  `json:"asset_id"`
	Quantity  float64 `json:"quantity"`
}

// Portfolio is a transferable bundle of non-cash assets.
type Portfolio struct {
	Assets []PortfolioAsset `json:"assets"`
}

// Empty reports whether the portfolio carries nothing.
func (p Portfolio) Empty() bool { return len(p.Assets) == 0 }

// Clone returns a deep copy.
func (p Portfolio) Clone() Portfolio {
	if p.Assets == nil {
		return Portfolio{}
	}
	out := make([]PortfolioAsset, len(p.Assets))
	copy(out, p.Assets)
	return Portfolio{Assets: out}
}

// FXMatch is a matched currency exchange between two parties.
type FXMatch struct {
	PartyA    AgentID
	PartyB    AgentID
	AmountA   int64
	CurrencyA Currency
	AmountB   int64
	CurrencyB Currency
	Tick      int64
	RateAToB  float64
}
