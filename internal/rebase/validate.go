package rebase

import (
	"fmt"
	"strings"
)

// ResolveFunc maps a commit reference to its full hash.
type ResolveFunc func(rev string) (string, error)

// RewordPlaceholder is the message a reword without a new message gets.
const RewordPlaceholder = "Reworded commit"

// validatePlan checks a plan before anything is touched. Every violated
// rule adds one error. resolved holds the full hash for each instruction
// whose commit resolved.
func validatePlan(plan []Instruction, resolve ResolveFunc) (ValidationResult, []string) {
	res := ValidationResult{Errors: []string{}, Warnings: []string{}}
	if len(plan) == 0 {
		res.Errors = append(res.Errors, "rebase plan is empty")
		return res, nil
	}

	resolved := make([]string, len(plan))
	seen := make(map[string]int, len(plan))
	counts := map[Action]int{}
	for i, ins := range plan {
		pos := i + 1
		action, err := ParseAction(string(ins.Action))
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("instruction %d: %v", pos, err))
		}
		counts[action]++

		switch {
		case i == 0 && action != ActionPick:
			res.Errors = append(res.Errors, fmt.Sprintf("first instruction must be pick, not %s", displayAction(ins.Action)))
		case i > 0 && action.folds() && plan[i-1].Action == ActionDrop:
			res.Errors = append(res.Errors, fmt.Sprintf("instruction %d: %s cannot follow drop; there is no commit to combine it with", pos, action))
		}

		if strings.TrimSpace(ins.Hash) == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("instruction %d: commit hash is empty", pos))
			continue
		}
		hash, err := resolve(ins.Hash)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("instruction %d: commit %s not found", pos, ins.Hash))
			continue
		}
		if prev, dup := seen[hash]; dup {
			res.Errors = append(res.Errors, fmt.Sprintf("instruction %d: commit %s already appears at instruction %d", pos, shortHash(hash), prev))
			continue
		}
		seen[hash] = pos
		resolved[i] = hash

		if action == ActionReword && strings.TrimSpace(ins.NewMessage) == "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("instruction %d: reword has no new message; %q will be used", pos, RewordPlaceholder))
		}
	}

	if counts[ActionDrop] == len(plan) {
		res.Errors = append(res.Errors, "every instruction is drop; refusing to remove all commits")
	}
	res.IsValid = len(res.Errors) == 0
	if !res.IsValid {
		// Outcome warnings only describe plans that can run.
		return res, resolved
	}
	if n := counts[ActionSquash] + counts[ActionFixup]; n > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d %s will be combined into earlier commits", n, plural(n, "commit")))
	}
	if n := counts[ActionDrop]; n > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d %s will be dropped", n, plural(n, "commit")))
	}
	if n := counts[ActionEdit]; n > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("the rebase will stop %d %s for editing", n, plural(n, "time")))
	}
	return res, resolved
}

// summarize counts what a plan will do. The result has one commit per pick,
// reword and edit.
func summarize(plan []Instruction, validation ValidationResult) PlanSummary {
	sum := PlanSummary{
		TotalCommits:   len(plan),
		ActionsSummary: map[string]int{},
		Warnings:       validation.Warnings,
		CanProceed:     validation.IsValid,
	}
	if !validation.IsValid {
		sum.Errors = validation.Errors
	}
	for _, ins := range plan {
		sum.ActionsSummary[string(ins.Action)]++
		if ins.Action.startsCommit() {
			sum.ResultingCommits++
		}
	}
	return sum
}

// normalizePlan returns a copy of plan with actions lowercased and hashes
// trimmed. Unknown actions are kept so validation can report them.
func normalizePlan(plan []Instruction) []Instruction {
	out := make([]Instruction, len(plan))
	for i, ins := range plan {
		out[i] = Instruction{
			Hash:       strings.TrimSpace(ins.Hash),
			Action:     Action(strings.ToLower(strings.TrimSpace(string(ins.Action)))),
			NewMessage: ins.NewMessage,
		}
	}
	return out
}

func displayAction(a Action) string {
	if a == "" {
		return "an empty action"
	}
	return string(a)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
