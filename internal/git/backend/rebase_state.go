package backend

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	grafterrors "github.com/Dancode-188/graft/internal/errors"
)

const (
	rebaseDirName = "rebase-merge"
	// TodoFileName holds the serialized plan and session next to git's own
	// rebase files.
	TodoFileName = "graft-todo.yaml"
)

// RebaseMarkers is the subset of git's rebase-merge bookkeeping that other git
// tools read: where the rebase started, what it rebases onto and progress.
type RebaseMarkers struct {
	HeadName string // refs/heads/<branch>, or "detached HEAD"
	OrigHead string
	Onto     string
	MsgNum   int // 1-based position of the instruction being applied
	End      int
}

func (r *Repo) rebaseDir() string {
	return filepath.Join(r.gitDir, rebaseDirName)
}

// RebaseBegin creates the on-disk session. It fails if any rebase
// bookkeeping already exists.
func (r *Repo) RebaseBegin(m RebaseMarkers, todo []byte) error {
	dir := r.rebaseDir()
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return &grafterrors.OperationInProgressError{State: StateRebase.String()}
		}
		return fmt.Errorf("create rebase state: %w", err)
	}
	files := map[string]string{
		"head-name":   m.HeadName,
		"orig-head":   m.OrigHead,
		"onto":        m.Onto,
		"interactive": "",
	}
	for name, content := range files {
		if err := writeStateFile(dir, name, content); err != nil {
			_ = os.RemoveAll(dir)
			return err
		}
	}
	if err := r.RebaseProgress(m.MsgNum, m.End, todo); err != nil {
		_ = os.RemoveAll(dir)
		return err
	}
	return nil
}

// RebaseProgress records the cursor and the serialized session.
func (r *Repo) RebaseProgress(msgNum, end int, todo []byte) error {
	dir := r.rebaseDir()
	if err := writeStateFile(dir, "msgnum", strconv.Itoa(msgNum)); err != nil {
		return err
	}
	if err := writeStateFile(dir, "end", strconv.Itoa(end)); err != nil {
		return err
	}
	tmp := filepath.Join(dir, TodoFileName+".tmp")
	if err := os.WriteFile(tmp, todo, 0o644); err != nil {
		return fmt.Errorf("write rebase todo: %w", err)
	}
	return os.Rename(tmp, filepath.Join(dir, TodoFileName))
}

// RebaseLoad reads the session back. It returns ErrNoOperationInProgress when
// no rebase-merge directory exists.
func (r *Repo) RebaseLoad() (RebaseMarkers, []byte, error) {
	dir := r.rebaseDir()
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return RebaseMarkers{}, nil, grafterrors.ErrNoOperationInProgress
		}
		return RebaseMarkers{}, nil, err
	}
	var m RebaseMarkers
	var err error
	if m.HeadName, err = readStateFile(dir, "head-name"); err != nil {
		return m, nil, err
	}
	if m.OrigHead, err = readStateFile(dir, "orig-head"); err != nil {
		return m, nil, err
	}
	if m.Onto, err = readStateFile(dir, "onto"); err != nil {
		return m, nil, err
	}
	for name, dst := range map[string]*int{"msgnum": &m.MsgNum, "end": &m.End} {
		raw, err := readStateFile(dir, name)
		if err != nil {
			return m, nil, err
		}
		if *dst, err = strconv.Atoi(raw); err != nil {
			return m, nil, fmt.Errorf("rebase state %s: %w", name, err)
		}
	}
	todo, err := os.ReadFile(filepath.Join(dir, TodoFileName))
	if err != nil && !os.IsNotExist(err) {
		return m, nil, fmt.Errorf("read rebase todo: %w", err)
	}
	return m, todo, nil
}

// RebaseFinish removes the session bookkeeping.
func (r *Repo) RebaseFinish() error {
	if err := os.RemoveAll(r.rebaseDir()); err != nil {
		return fmt.Errorf("remove rebase state: %w", err)
	}
	return nil
}

func writeStateFile(dir, name, content string) error {
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content+"\n"), 0o644); err != nil {
		return fmt.Errorf("write rebase state %s: %w", name, err)
	}
	return nil
}

func readStateFile(dir, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("read rebase state %s: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}
