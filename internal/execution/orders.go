package execution

import (
	"encoding/json"
	"strings"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType is a closed set of order variants. Unknown strings decode to
// OrderUnknown and surface as invalid_order results rather than being
// silently routed as MARKET.
type OrderType int

const (
	OrderUnknown OrderType = iota
	OrderMarket
	OrderLimit
	OrderAlgo
)

func (t OrderType) String() string {
	switch t {
	case OrderMarket:
		return "MARKET"
	case OrderLimit:
		return "LIMIT"
	case OrderAlgo:
		return "ALG"
	default:
		return "UNKNOWN"
	}
}

func (t OrderType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *OrderType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch strings.ToUpper(s) {
	case "MARKET":
		*t = OrderMarket
	case "LIMIT":
		*t = OrderLimit
	case "ALG":
		*t = OrderAlgo
	default:
		*t = OrderUnknown
	}
	return nil
}

type Order struct {
	Ticker          string    `json:"ticker"`
	Side            Side      `json:"side"`
	Qty             int       `json:"qty"`
	Type            OrderType `json:"type"`
	Limit           *float64  `json:"limit,omitempty"`
	Algo            string    `json:"algo,omitempty"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	Slices          int       `json:"slices,omitempty"`
	PercentOfADV    *float64  `json:"percent_of_adv,omitempty"`
}

type Plan struct {
	Orders         []Order   `json:"orders"`
	SORPolicy      SORPolicy `json:"sor_policy"`
	MaxSlippageBps float64   `json:"max_slippage_bps"`
}

// MarketInfo is the per-ticker snapshot the simulator fills against.
type MarketInfo struct {
	Price float64 `json:"price"`
	ADV   float64 `json:"adv"` // average daily dollar volume
}

// Terminal statuses for orders and slices.
const (
	StatusFilled       = "filled"
	StatusPartial      = "partial"
	StatusNoFill       = "no_fill"
	StatusNotFilled    = "not_filled"
	StatusInvalidOrder = "invalid_order"
)

type SliceFill struct {
	Slice     int      `json:"slice,omitempty"`
	Requested int      `json:"requested"`
	Filled    int      `json:"filled"`
	Price     *float64 `json:"price"`
	Status    string   `json:"status"`
}

type OrderFill struct {
	Ticker       string      `json:"ticker"`
	RequestedQty int         `json:"requested_qty"`
	FilledQty    int         `json:"filled_qty"`
	AvgFillPrice *float64    `json:"avg_fill_price"`
	Status       string      `json:"status"`
	Fills        []SliceFill `json:"fills"`
}

type PlanMetrics struct {
	TotalRequested    int     `json:"total_requested"`
	TotalFilled       int     `json:"total_filled"`
	NotionalFilledUSD float64 `json:"notional_filled_usd"`
}

type FillReport struct {
	Status  string      `json:"status"`
	Fills   []OrderFill `json:"fills"`
	Metrics PlanMetrics `json:"metrics"`
}
