package pipeline

// State is a step of the extraction state machine. States only move forward;
// a run ends in StateDone or StateFailed.
type State string

const (
	StateReceived       State = "RECEIVED"
	StateFormatChecked  State = "FORMAT_CHECKED"
	StateRasterized     State = "RASTERIZED"
	StateProbed         State = "PROBED"
	StateClassified     State = "CLASSIFIED"
	StateSchemaSelected State = "SCHEMA_SELECTED"
	StateExtracted      State = "EXTRACTED"
	StateDone           State = "DONE"
	StateFailed         State = "FAILED"
)

// States lists the non-terminal states in transition order.
var States = []State{
	StateReceived,
	StateFormatChecked,
	StateRasterized,
	StateProbed,
	StateClassified,
	StateSchemaSelected,
	StateExtracted,
}

func (s State) String() string { return string(s) }

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
