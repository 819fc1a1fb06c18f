package game

type ActionKind string

const (
	ActionTap   = ActionKind("tap")
	ActionSwipe = ActionKind("swipe")
)

const (
	IngredientRice   = "rice"
	IngredientTomato = "tomato"
	IngredientPepper = "pepper"
	IngredientOnion  = "onion"
	IngredientSpice  = "spice"

	DirectionLeft  = "left"
	DirectionRight = "right"
	DirectionStir  = "stir"
)

// Action is one required player input. Target is an ingredient for taps and a
// direction for swipes.
type Action struct {
	Kind         ActionKind `json:"type"`
	Target       string     `json:"target"`
	TimingWindow int        `json:"timingWindow"` // ms
}

var cookingActions = []Action{
	{Kind: ActionTap, Target: IngredientRice, TimingWindow: 1000},
	{Kind: ActionTap, Target: IngredientTomato, TimingWindow: 1000},
	{Kind: ActionTap, Target: IngredientOnion, TimingWindow: 1000},
	{Kind: ActionSwipe, Target: DirectionStir, TimingWindow: 1500},
	{Kind: ActionTap, Target: IngredientPepper, TimingWindow: 1000},
	{Kind: ActionSwipe, Target: DirectionStir, TimingWindow: 1500},
	{Kind: ActionTap, Target: IngredientSpice, TimingWindow: 1000},
	{Kind: ActionSwipe, Target: DirectionStir, TimingWindow: 1500},
}

// CookingActions returns a fresh copy of the canonical action queue.
func CookingActions() []Action {
	out := make([]Action, len(cookingActions))
	copy(out, cookingActions)
	return out
}

// Matches reports whether a performed input satisfies the required action.
func Matches(required Action, kind ActionKind, value string) bool {
	return required.Kind == kind && required.Target == value
}

func validTarget(kind ActionKind, value string) bool {
	switch kind {
	case ActionTap:
		switch value {
		case IngredientRice, IngredientTomato, IngredientPepper, IngredientOnion, IngredientSpice:
			return true
		}
	case ActionSwipe:
		switch value {
		case DirectionLeft, DirectionRight, DirectionStir:
			return true
		}
	}
	return false
}
