package rebase

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	grafterrors "github.com/Dancode-188/graft/internal/errors"
	"github.com/Dancode-188/graft/internal/git/backend"
)

type stopReason string

const (
	stopNone     stopReason = ""
	stopConflict stopReason = "conflict"
	stopEdit     stopReason = "edit"
)

type signature struct {
	Name  string    `yaml:"name"`
	Email string    `yaml:"email"`
	When  time.Time `yaml:"when"`
}

// group is a commit being assembled: a pick, reword or edit plus any
// squash and fixup instructions that follow it. Its changes sit in the index
// until the next group starts or the plan ends.
type group struct {
	Lead     string    `yaml:"lead"`
	Author   signature `yaml:"author"`
	Messages []string  `yaml:"messages"`
	// Committed is set once HEAD already holds the group, after an edit stop.
	// Later squashes amend it.
	Committed bool `yaml:"committed,omitempty"`
}

// session is the persisted state of a rebase. The cursor and total are not
// part of the document; they come from git's msgnum and end files.
type session struct {
	ID              string        `yaml:"id"`
	Base            string        `yaml:"base"`
	Plan            []Instruction `yaml:"plan"`
	Pending         *group        `yaml:"pending,omitempty"`
	Stopped         stopReason    `yaml:"stopped,omitempty"`
	AbortOnConflict bool          `yaml:"abort_on_conflict,omitempty"`
	Produced        int           `yaml:"produced"`

	markers backend.RebaseMarkers
	cursor  int
}

var errForeignRebase = fmt.Errorf("%w: the rebase in progress was not started by graft; finish it with git", grafterrors.ErrOperationInProgress)

// msgNum is the 1-based position git reports: the failing instruction while
// stopped on a conflict, otherwise the last instruction taken.
func (s *session) msgNum() int {
	if s.Stopped == stopConflict {
		return s.cursor + 1
	}
	return s.cursor
}

func (s *session) encode() ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode rebase session: %w", err)
	}
	return data, nil
}

// decodeSession rebuilds a session from the on-disk bookkeeping and checks
// that git's counters agree with the plan.
func decodeSession(m backend.RebaseMarkers, data []byte) (*session, error) {
	if len(data) == 0 {
		return nil, errForeignRebase
	}
	var s session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, &grafterrors.InvariantError{Detail: fmt.Sprintf("rebase session is unreadable: %v", err)}
	}
	s.markers = m
	if m.End != len(s.Plan) {
		return nil, &grafterrors.InvariantError{Detail: fmt.Sprintf("rebase plan has %d instructions but git records %d", len(s.Plan), m.End)}
	}
	s.cursor = m.MsgNum
	if s.Stopped == stopConflict {
		s.cursor--
	}
	if s.cursor < 0 || s.cursor > len(s.Plan) || (s.Stopped == stopConflict && s.cursor == len(s.Plan)) {
		return nil, &grafterrors.InvariantError{Detail: fmt.Sprintf("rebase position %d is outside a plan of %d", m.MsgNum, m.End)}
	}
	return &s, nil
}
