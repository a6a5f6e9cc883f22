// Package rebase rewrites a range of history from a caller-edited plan.
//
// A session applies one instruction at a time on a detached HEAD and keeps
// its state in the repository's rebase-merge directory, so it survives a
// restart and other git tools see a rebase in progress. It ends completed,
// stopped for an edit, stopped on a conflict or aborted.
package rebase

import (
	"fmt"
	"strings"

	"github.com/Dancode-188/graft/internal/conflict"
)

type Action string

const (
	ActionPick   Action = "pick"
	ActionSquash Action = "squash"
	ActionFixup  Action = "fixup"
	ActionDrop   Action = "drop"
	ActionReword Action = "reword"
	ActionEdit   Action = "edit"
)

var actions = []Action{ActionPick, ActionSquash, ActionFixup, ActionDrop, ActionReword, ActionEdit}

func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range actions {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown rebase action %q", s)
}

// folds reports whether the action merges into the commit before it.
func (a Action) folds() bool {
	return a == ActionSquash || a == ActionFixup
}

// startsCommit reports whether the action produces a commit of its own.
func (a Action) startsCommit() bool {
	return a == ActionPick || a == ActionReword || a == ActionEdit
}

// Instruction is one line of a plan.
type Instruction struct {
	Hash       string `json:"hash" yaml:"hash"`
	Action     Action `json:"action" yaml:"action"`
	NewMessage string `json:"new_message,omitempty" yaml:"new_message,omitempty"`
}

// Commit is a commit offered for rebasing, oldest first.
type Commit struct {
	Hash      string `json:"hash"`
	ShortHash string `json:"short_hash"`
	Message   string `json:"message"`
	Author    string `json:"author"`
	Timestamp int64  `json:"timestamp"`
	Action    Action `json:"action"`
}

type ValidationResult struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

type PlanSummary struct {
	TotalCommits     int            `json:"total_commits"`
	ActionsSummary   map[string]int `json:"actions_summary"`
	ResultingCommits int            `json:"resulting_commits"`
	Warnings         []string       `json:"warnings"`
	Errors           []string       `json:"errors,omitempty"`
	CanProceed       bool           `json:"can_proceed"`
}

// State is where a rebase call left the session.
type State string

const (
	StateCompleted      State = "completed"
	StateInProgress     State = "in_progress"
	StateStoppedForEdit State = "stopped_for_edit"
	StateConflict       State = "conflict"
	StateAborted        State = "aborted"
)

type Result struct {
	Success bool `json:"success"`
	// CurrentCommitIndex is the 1-based plan position the session stopped at.
	CurrentCommitIndex int                 `json:"current_commit_index"`
	TotalCommits       int                 `json:"total_commits"`
	Conflicts          []conflict.Conflict `json:"conflicts"`
	Message            string              `json:"message"`
	RebaseState        State               `json:"rebase_state"`
	// NewHead is the commit the rebased branch points at once completed.
	NewHead string `json:"new_head,omitempty"`
}

type Status struct {
	IsInProgress       bool                `json:"is_in_progress"`
	CurrentCommitIndex int                 `json:"current_commit_index"`
	TotalCommits       int                 `json:"total_commits"`
	HasConflicts       bool                `json:"has_conflicts"`
	Conflicts          []conflict.Conflict `json:"conflicts"`
	OntoCommit         string              `json:"onto_commit"`
	OriginalHead       string              `json:"original_head"`
	State              State               `json:"state,omitempty"`
}
