package model

// Market scopes duplicate matching to a single state and defines the local
// parcel id convention. Matching never crosses state boundaries.
type Market struct {
	ID             string `json:"id" yaml:"-"`
	MarketCode     string `json:"market_code" yaml:"market_code"`
	MarketName     string `json:"market_name" yaml:"market_name"`
	State          string `json:"state" yaml:"state"`
	StateFull      string `json:"state_full" yaml:"state_full"`
	ParcelIDType   string `json:"parcel_id_type" yaml:"parcel_id_type"`
	ParcelIDFormat string `json:"parcel_id_format" yaml:"parcel_id_format"`
}
