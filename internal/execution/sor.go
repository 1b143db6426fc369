package execution

import (
	"encoding/json"
	"strconv"
	"strings"
)

const defaultParticipation = 0.05

// SORPolicy is a smart-order-routing participation policy. On the wire it is
// accepted either as a structured object or as a "percent_of_adv=<float>"
// string; anything malformed falls back to the 5% default rather than
// failing the plan.
type SORPolicy struct {
	Mode    string  `json:"mode"`
	Percent float64 `json:"percent"`
}

func DefaultSORPolicy() SORPolicy {
	return SORPolicy{Mode: "percent_of_adv", Percent: defaultParticipation}
}

// ParseSORPolicy normalizes the string encoding of a policy.
func ParseSORPolicy(s string) SORPolicy {
	if strings.HasPrefix(s, "percent_of_adv=") {
		if v, err := strconv.ParseFloat(strings.TrimPrefix(s, "percent_of_adv="), 64); err == nil {
			return SORPolicy{Mode: "percent_of_adv", Percent: v}
		}
	}
	return DefaultSORPolicy()
}

func (p *SORPolicy) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*p = ParseSORPolicy(s)
		return nil
	}
	// Pointer distinguishes an absent percent from an explicit 0.
	var v struct {
		Mode    string   `json:"mode"`
		Percent *float64 `json:"percent"`
	}
	if err := json.Unmarshal(b, &v); err != nil {
		*p = DefaultSORPolicy()
		return nil
	}
	if v.Mode == "" {
		v.Mode = "percent_of_adv"
	}
	pct := defaultParticipation
	if v.Percent != nil {
		pct = *v.Percent
	}
	*p = SORPolicy{Mode: v.Mode, Percent: pct}
	return nil
}
