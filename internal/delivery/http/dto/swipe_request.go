package dto

type TabRequest struct {
	Tab string `json:"tab"`
}

type FilterRequest struct {
	City       string   `json:"city"`
	University string   `json:"university"`
	Interests  []string `json:"interests"`
}

type DecisionRequest struct {
	Decision string `json:"decision"`
}

// GestureRequest is one pointer event on the top card. Phase is down, move or up.
type GestureRequest struct {
	Phase string  `json:"phase"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

type ScrollRequest struct {
	Offset float64 `json:"offset"`
}

// DismissRequest names the one-time overlay being closed: tutorial or incoming_tip.
type DismissRequest struct {
	Overlay string `json:"overlay"`
}
