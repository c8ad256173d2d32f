package models

// DefaultWeeklyPassUnitPrice is the price of one weekly-pass tier in
// minor currency units; wpN costs N times this.
const DefaultWeeklyPassUnitPrice int64 = 6500

// WeeklyPassPrefix + tier 1..10 forms a weekly-pass item code.
const (
	WeeklyPassPrefix  = "wp"
	WeeklyPassMinTier = 1
	WeeklyPassMaxTier = 10
)

// DefaultBundlePrices maps fixed diamond bundle codes to prices.
var DefaultBundlePrices = map[string]int64{
	"11": 950, "22": 1900, "33": 2850, "56": 4200, "112": 8200,
	"86": 5100, "172": 10200, "257": 15300, "343": 20400,
	"429": 25500, "514": 30600, "600": 35700, "706": 40800,
	"878": 51000, "963": 56100, "1049": 61200, "1135": 66300,
	"1412": 81600, "2195": 122400, "3688": 204000,
	"5532": 306000, "9288": 510000, "12976": 714000,
}

// DefaultDoubleBundlePrices is the first-recharge double-bundle
// sub-table; the codes overlap numerically with nothing in the main
// table.
var DefaultDoubleBundlePrices = map[string]int64{
	"55": 3500, "165": 10000, "275": 16000, "565": 33000,
}

// PriceList is a resolved snapshot of the catalog used by the price
// command and the admin API.
type PriceList struct {
	WeeklyPassUnitPrice int64            `json:"weekly_pass_unit_price"`
	Bundles             map[string]int64 `json:"bundles"`
	DoubleBundles       map[string]int64 `json:"double_bundles"`
	Overrides           map[string]int64 `json:"overrides"`
}
