package backend

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StashSaveOptions mirrors "git stash push".
type StashSaveOptions struct {
	Message          string
	IncludeUntracked bool
	KeepIndex        bool
}

func (r *Repo) StashSave(ctx context.Context, opts StashSaveOptions) error {
	args := []string{"stash", "push", "--quiet"}
	if opts.IncludeUntracked {
		args = append(args, "--include-untracked")
	}
	if opts.KeepIndex {
		args = append(args, "--keep-index")
	}
	if msg := strings.TrimSpace(opts.Message); msg != "" {
		args = append(args, "-m", msg)
	}
	_, err := r.git(ctx, args...)
	return err
}

const (
	stashFieldSep  = "\x1f"
	stashRecordSep = "\x1e"
)

// StashList enumerates the stash reflog, most recent first.
func (r *Repo) StashList(ctx context.Context) ([]StashRecord, error) {
	format := "--format=%H" + "%x1f%ct%x1f%P%x1f%gs%x1e"
	out, err := r.git(ctx, "stash", "list", format)
	if err != nil {
		return nil, err
	}
	return parseStashList(out)
}

func parseStashList(out string) ([]StashRecord, error) {
	var records []StashRecord
	for _, raw := range strings.Split(out, stashRecordSep) {
		raw = strings.TrimLeft(raw, "\n")
		if strings.TrimSpace(raw) == "" {
			continue
		}
		fields := strings.SplitN(raw, stashFieldSep, 4)
		if len(fields) != 4 {
			return nil, fmt.Errorf("malformed stash record %q", raw)
		}
		secs, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("stash timestamp %q: %w", fields[1], err)
		}
		records = append(records, StashRecord{
			Index:   len(records),
			Hash:    fields[0],
			Time:    time.Unix(secs, 0),
			Parents: strings.Fields(fields[2]),
			Subject: strings.TrimSpace(fields[3]),
		})
	}
	return records, nil
}

// StashApply re-materializes stash@{index}. It reports conflicts instead of
// failing, and never touches the stash list.
func (r *Repo) StashApply(ctx context.Context, index int, restoreIndex bool) (bool, error) {
	args := []string{"stash", "apply", "--quiet"}
	if restoreIndex {
		args = append(args, "--index")
	}
	args = append(args, stashRef(index))
	return r.runConflicting(ctx, args)
}

func (r *Repo) StashDrop(ctx context.Context, index int) error {
	_, err := r.git(ctx, "stash", "drop", "--quiet", stashRef(index))
	return err
}

func stashRef(index int) string {
	return fmt.Sprintf("stash@{%d}", index)
}
