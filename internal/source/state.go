package source

// State is the preparation state machine for one source.
//
// Valid transitions:
//   - Init      → Preparing (prepare requested)
//   - Preparing → Prepared  (engine raised Prepared)
//   - any       → Failed    (engine raised an error; terminal)
//
// A source never leaves Failed; recovery requires removing it from the
// queue and installing a new item.
type State int

const (
	Init State = iota
	Preparing
	Prepared
	Failed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Init:
		return "Init"
	case Preparing:
		return "Preparing"
	case Prepared:
		return "Prepared"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// PlayState is the playback state machine for one source.
//
// Valid transitions:
//   - Idle     → Ready            (prepared)
//   - Ready    → Playing          (start)
//   - Playing  → Paused           (pause, end of single-item queue)
//   - Paused   → Playing          (start)
//   - any      → Errored          (terminal)
//
// Only the current queue slot may reach Playing; a next-slot source is
// capped at Ready until promoted.
type PlayState int

const (
	Idle PlayState = iota
	Ready
	Paused
	Playing
	Errored
)

// String returns the state name.
func (s PlayState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Ready:
		return "Ready"
	case Paused:
		return "Paused"
	case Playing:
		return "Playing"
	case Errored:
		return "Errored"
	default:
		return "Unknown"
	}
}

// IsActive returns true if playback is underway or suspended.
func (s PlayState) IsActive() bool {
	return s == Playing || s == Paused
}

// Buffering is the buffer health of one source.
type Buffering int

const (
	BufferingUnknown Buffering = iota
	// BufferingStarved means playback is stalled waiting for data.
	BufferingStarved
	// BufferingPlayable means enough data is buffered to play.
	BufferingPlayable
	// BufferingComplete means the whole item is buffered.
	BufferingComplete
)

// String returns the buffering state name.
func (b Buffering) String() string {
	switch b {
	case BufferingUnknown:
		return "Unknown"
	case BufferingStarved:
		return "Starved"
	case BufferingPlayable:
		return "Playable"
	case BufferingComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}
