package rating

// State is the reconciler's position in the submit cycle.
type State int

// Reconciler states. Submitting and Reverting are transient: a write is in
// flight and edits, submits and undos are rejected until it completes.
const (
	StateClean State = iota
	StateDirty
	StateSubmitting
	StateReverting
)

var stateNames = [...]string{"clean", "dirty", "submitting", "reverting"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Busy reports whether a write is in flight.
func (s State) Busy() bool {
	return s == StateSubmitting || s == StateReverting
}

// NoticeKind classifies the outcome of the last write.
type NoticeKind string

// Notice kinds.
const (
	NoticeSuccess    NoticeKind = "success"
	NoticeFailure    NoticeKind = "failure"
	NoticeUndone     NoticeKind = "undone"
	NoticeUndoFailed NoticeKind = "undo_failed"
)

// User-facing notice messages.
const (
	MsgSubmitted    = "Rating updated successfully!"
	MsgSubmitFailed = "Failed to update rating. Please try again later."
	MsgUndone       = "Rating update undone."
	MsgUndoFailed   = "Failed to undo rating update. Please try again later."
)

// Notice is the signal surfaced after a write completes.
type Notice struct {
	Kind    NoticeKind
	Message string
	// Undo is true when the notice offers an undo affordance.
	Undo bool
}

// StarShare is one row of the rating breakdown.
type StarShare struct {
	Star    Star
	Count   int
	Percent float64
}

// View is what the presentation layer renders after every operation.
type View struct {
	BookID         int64
	State          State
	Counts         Snapshot
	Total          int
	Average        float64
	AverageDisplay string
	HasChanges     bool
	UndoAvailable  bool
	Notice         *Notice
}

// Breakdown returns star rows ordered 5 to 1 with their share of the total.
func (v View) Breakdown() []StarShare {
	rows := make([]StarShare, 0, int(MaxStar))
	for star := MaxStar; star >= MinStar; star-- {
		rows = append(rows, StarShare{
			Star:    star,
			Count:   v.Counts.Count(star),
			Percent: v.Counts.Percent(star),
		})
	}
	return rows
}
