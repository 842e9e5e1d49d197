package resource

// Phase is the screen state derived from a controller snapshot.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseEditing
	PhaseDrafting
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseEditing:
		return "editing"
	case PhaseDrafting:
		return "drafting"
	case PhaseError:
		return "error"
	default:
		return "idle"
	}
}

// State is the list and form state of one resource screen.
type State[R Record] struct {
	Records   []R
	Draft     []string
	Editing   bool
	EditingID int64
	Loading   bool
	Err       string
}

// Phase derives the screen state. Loading wins over an error, an error over
// an edit in progress.
func (s State[R]) Phase() Phase {
	switch {
	case s.Loading:
		return PhaseLoading
	case s.Err != "":
		return PhaseError
	case s.Editing:
		return PhaseEditing
	case s.hasDraft():
		return PhaseDrafting
	default:
		return PhaseIdle
	}
}

// Selected returns the listed record being edited, if any.
func (s State[R]) Selected() (R, bool) {
	if !s.Editing {
		var zero R
		return zero, false
	}
	return s.find(s.EditingID)
}

func (s State[R]) hasDraft() bool {
	for _, value := range s.Draft {
		if value != "" {
			return true
		}
	}
	return false
}

func (s State[R]) find(id int64) (R, bool) {
	for _, record := range s.Records {
		if recordID, ok := record.Identifier(); ok && recordID == id {
			return record, true
		}
	}
	var zero R
	return zero, false
}

func (s State[R]) clone() State[R] {
	cloned := s
	cloned.Records = append([]R(nil), s.Records...)
	cloned.Draft = append([]string(nil), s.Draft...)
	return cloned
}
