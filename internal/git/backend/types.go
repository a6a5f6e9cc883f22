package backend

import "time"

type Signature struct {
	Name  string
	Email string
	When  time.Time
}

type Commit struct {
	Hash         string
	ParentHashes []string
	Author       Signature
	Committer    Signature
	Message      string
}

// HeadInfo describes where HEAD points. Hash is empty when Unborn is set.
type HeadInfo struct {
	Hash     string
	Branch   string // short branch name; empty when detached
	Detached bool
	Unborn   bool
}

type RefKind uint8

const (
	RefKindBranch RefKind = iota
	RefKindRemoteBranch
	RefKindTag
)

type Ref struct {
	Hash     string
	Kind     RefKind
	Name     string // short name: main, origin/main, v1
	FullName string // refs/heads/main
	Upstream string // short name of the configured upstream, local branches only
	Current  bool
}

// OperationState is the single repository-wide "operation in progress" flag.
// Mutating commands read it first and refuse to run unless it is StateNone.
type OperationState uint8

const (
	StateNone OperationState = iota
	StateRebase
	StateMerge
	StateCherryPick
	StateRevert
	StateBisect
)

func (s OperationState) String() string {
	switch s {
	case StateRebase:
		return "rebase"
	case StateMerge:
		return "merge"
	case StateCherryPick:
		return "cherry-pick"
	case StateRevert:
		return "revert"
	case StateBisect:
		return "bisect"
	default:
		return "none"
	}
}

type ChangeKind string

const (
	ChangeAdded      ChangeKind = "added"
	ChangeDeleted    ChangeKind = "deleted"
	ChangeModified   ChangeKind = "modified"
	ChangeRenamed    ChangeKind = "renamed"
	ChangeCopied     ChangeKind = "copied"
	ChangeTypeChange ChangeKind = "type_change"
)

// FileChange is one entry of a tree-to-tree diff.
type FileChange struct {
	Path       string     `json:"path"`
	OldPath    string     `json:"old_path,omitempty"`
	Status     ChangeKind `json:"status"`
	Insertions int        `json:"insertions"`
	Deletions  int        `json:"deletions"`
}

// WorkingFile is one path from the working directory status. A path that is
// both staged and modified again appears twice, once per side.
type WorkingFile struct {
	Path     string `json:"path"`
	OrigPath string `json:"orig_path,omitempty"`
	Status   string `json:"status"`
	IsStaged bool   `json:"is_staged"`
}

type WorkingStatus struct {
	Files        []WorkingFile
	Unmerged     []string
	HasStaged    bool
	HasWorktree  bool
	HasUntracked bool
}

// Clean reports whether tracked files match HEAD. Untracked files do not count.
func (s WorkingStatus) Clean() bool {
	return !s.HasStaged && !s.HasWorktree && len(s.Unmerged) == 0
}

// IndexConflict reports which of the three merge stages exist for a path.
type IndexConflict struct {
	Path     string
	Ancestor bool
	Ours     bool
	Theirs   bool
}

type StashRecord struct {
	Index   int
	Hash    string
	Subject string
	Time    time.Time
	Parents []string
}

type RemoteInfo struct {
	Name string
	URL  string
}
