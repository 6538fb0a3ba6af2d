package voice

import "encoding/json"

type Action string

const (
	ActionBump     Action = "bump"
	ActionRecall   Action = "recall"
	ActionStart    Action = "start"
	ActionPriority Action = "priority"
	ActionShow     Action = "show"
	ActionFilter   Action = "filter"
	ActionHelp     Action = "help"
	ActionUnknown  Action = "unknown"
)

// Command is implemented only by the variants in this file, so a type switch
// over them is exhaustive.
type Command interface {
	Action() Action
	command()
}

type Bump struct{ OrderID string }

type Recall struct{ OrderID string }

type Start struct{ OrderID string }

type SetPriority struct {
	OrderID string
	Level   int
}

// Show switches the board to a station, a status, or a table ("table 4").
type Show struct{ View string }

type Filter struct{ Criterion string }

type Help struct{}

type Unknown struct{}

func (Bump) Action() Action        { return ActionBump }
func (Recall) Action() Action      { return ActionRecall }
func (Start) Action() Action       { return ActionStart }
func (SetPriority) Action() Action { return ActionPriority }
func (Show) Action() Action        { return ActionShow }
func (Filter) Action() Action      { return ActionFilter }
func (Help) Action() Action        { return ActionHelp }
func (Unknown) Action() Action     { return ActionUnknown }

func (Bump) command()        {}
func (Recall) command()      {}
func (Start) command()       {}
func (SetPriority) command() {}
func (Show) command()        {}
func (Filter) command()      {}
func (Help) command()        {}
func (Unknown) command()     {}

// Parsed is the outcome of interpreting one utterance.
type Parsed struct {
	Command      Command
	Confidence   float64
	OriginalText string
}

func (p Parsed) Action() Action {
	if p.Command == nil {
		return ActionUnknown
	}
	return p.Command.Action()
}

// Target is the order ID, view or criterion the command refers to.
func (p Parsed) Target() string {
	switch c := p.Command.(type) {
	case Bump:
		return c.OrderID
	case Recall:
		return c.OrderID
	case Start:
		return c.OrderID
	case SetPriority:
		return c.OrderID
	case Show:
		return c.View
	case Filter:
		return c.Criterion
	default:
		return ""
	}
}

// Value is the priority level for priority commands and zero otherwise.
func (p Parsed) Value() int {
	if c, ok := p.Command.(SetPriority); ok {
		return c.Level
	}
	return 0
}

type parsedJSON struct {
	Action       Action  `json:"action"`
	Target       string  `json:"target,omitempty"`
	Value        *int    `json:"value,omitempty"`
	Confidence   float64 `json:"confidence"`
	OriginalText string  `json:"originalText"`
}

func (p Parsed) MarshalJSON() ([]byte, error) {
	out := parsedJSON{
		Action:       p.Action(),
		Target:       p.Target(),
		Confidence:   p.Confidence,
		OriginalText: p.OriginalText,
	}
	if p.Action() == ActionPriority {
		v := p.Value()
		out.Value = &v
	}
	return json.Marshal(out)
}
