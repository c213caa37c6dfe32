package models

// AuthenticityChecks holds the individual heuristic checks.
// FontConsistency, PrintQuality and HoloPattern need image-level analysis and are always true.
type AuthenticityChecks struct {
	HasName         bool `json:"hasName"`
	HasSetNumber    bool `json:"hasSetNumber"`
	HasHP           bool `json:"hasHP"`
	FontConsistency bool `json:"fontConsistency"`
	PrintQuality    bool `json:"printQuality"`
	HoloPattern     bool `json:"holoPattern"`
}

func (c AuthenticityChecks) list() []bool {
	return []bool{c.HasName, c.HasSetNumber, c.HasHP, c.FontConsistency, c.PrintQuality, c.HoloPattern}
}

// Passed returns how many checks are true
func (c AuthenticityChecks) Passed() int {
	n := 0
	for _, ok := range c.list() {
		if ok {
			n++
		}
	}
	return n
}

// Total returns the number of checks
func (c AuthenticityChecks) Total() int {
	return len(c.list())
}

type AuthenticityResult struct {
	IsAuthentic bool               `json:"isAuthentic"`
	Confidence  float64            `json:"confidence"`
	Issues      []string           `json:"issues"`
	Checks      AuthenticityChecks `json:"checks"`
}
