package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/frankie-agent/frankie/internal/adapter/gitcli"
	"github.com/frankie-agent/frankie/internal/domain"
	"github.com/frankie-agent/frankie/internal/domain/permission"
	"github.com/frankie-agent/frankie/internal/domain/task"
	"github.com/frankie-agent/frankie/internal/port/llm"
	"github.com/frankie-agent/frankie/internal/port/plugin"
	"github.com/frankie-agent/frankie/internal/port/runner"
)

// CodeModifierID selects the self-modification plugin.
const CodeModifierID = "code_modifier"

// CodeModifierPlugin proposes changes to the application's own source.
// Pipeline: permission gate, LLM-generated file bodies, auto-format,
// sandboxed test run, human review, git commit on approval. Nothing touches
// the real working tree before an explicit approve.
type CodeModifierPlugin struct {
	llm       llm.Client
	perms     *PermissionService
	formatter runner.Formatter
	tests     runner.TestRunner
	committer runner.Committer
	workspace string
	prefix    string
}

// NewCodeModifierPlugin wires the code modifier. workspace is the root of the
// tree the agent may edit; prefix leads every commit message.
func NewCodeModifierPlugin(llmClient llm.Client, perms *PermissionService, formatter runner.Formatter,
	tests runner.TestRunner, committer runner.Committer, workspace, prefix string) *CodeModifierPlugin {
	if prefix == "" {
		prefix = "frankie:"
	}
	return &CodeModifierPlugin{
		llm:       llmClient,
		perms:     perms,
		formatter: formatter,
		tests:     tests,
		committer: committer,
		workspace: workspace,
		prefix:    prefix,
	}
}

func (p *CodeModifierPlugin) ID() string   { return CodeModifierID }
func (p *CodeModifierPlugin) Name() string { return "Code Modifier" }
func (p *CodeModifierPlugin) Description() string {
	return "Proposes reviewed changes to the application's own source files."
}

func (p *CodeModifierPlugin) Graph() plugin.Graph {
	return plugin.Graph{
		Start: task.StatusAnalyzing,
		Decisions: map[plugin.Edge]task.Status{
			{From: task.StatusAwaitingReview, Action: task.ActionApprove}: task.StatusFinalizing,
			{From: task.StatusAwaitingReview, Action: task.ActionReject}:  task.StatusRejected,
		},
	}
}

// codemodContext carries the proposed file bodies between phases.
type codemodContext struct {
	Modifications map[string]string `json:"modifications"`
}

// modificationResponse is the strict JSON shape requested from the LLM.
type modificationResponse struct {
	Explanation   string `json:"explanation"`
	Modifications []struct {
		FilePath   string `json:"file_path"`
		NewContent string `json:"new_content"`
	} `json:"modifications"`
}

func (p *CodeModifierPlugin) Handle(ctx context.Context, t *task.Task, ev plugin.Event) (plugin.Update, error) {
	if ev.Kind == plugin.EventDecision {
		return p.handleDecision(t, ev.Decision)
	}

	switch t.Status {
	case task.StatusPending:
		return p.checkPermissions(ctx, t)
	case task.StatusAnalyzing:
		return p.analyze(ctx, t)
	case task.StatusTesting:
		return p.test(ctx, t)
	case task.StatusFinalizing:
		return p.commit(ctx, t)
	default:
		return plugin.Update{}, fmt.Errorf("code modifier cannot advance from status %s", t.Status)
	}
}

func (p *CodeModifierPlugin) handleDecision(t *task.Task, d task.Decision) (plugin.Update, error) {
	switch d.Action {
	case task.ActionApprove:
		return plugin.Update{Status: task.StatusFinalizing}, nil
	case task.ActionReject:
		return plugin.Update{Status: task.StatusRejected}, nil
	default:
		return plugin.Update{}, fmt.Errorf("code modifier does not handle action %q", d.Action)
	}
}

// checkPermissions gates every target path against the allow-list before any
// LLM call is made. A single denied path fails the whole task.
func (p *CodeModifierPlugin) checkPermissions(ctx context.Context, t *task.Task) (plugin.Update, error) {
	if len(t.TargetFiles) == 0 {
		return plugin.Update{}, fmt.Errorf("%w: no target files given", domain.ErrValidation)
	}

	for _, f := range t.TargetFiles {
		norm := permission.Normalize(f)
		allowed, err := p.perms.IsAllowed(ctx, norm)
		if err != nil {
			return plugin.Update{}, fmt.Errorf("permission lookup for %q: %w", norm, err)
		}
		if !allowed {
			return plugin.Update{}, fmt.Errorf("%w: path %q is not allow-listed", domain.ErrPermissionDenied, norm)
		}
	}

	return plugin.Update{Status: task.StatusAnalyzing}, nil
}

// analyze asks the LLM for complete new file bodies, formats them and turns
// them into a unified diff. An empty diff suspends straight at review with
// the test stage skipped.
func (p *CodeModifierPlugin) analyze(ctx context.Context, t *task.Task) (plugin.Update, error) {
	originals := make(map[string]string, len(t.TargetFiles))
	for _, f := range t.TargetFiles {
		rel := permission.Normalize(f)
		body, err := os.ReadFile(filepath.Join(p.workspace, filepath.FromSlash(rel)))
		if err != nil {
			if !os.IsNotExist(err) {
				return plugin.Update{}, fmt.Errorf("read %s: %w", rel, err)
			}
			body = nil // new file
		}
		originals[rel] = string(body)
	}

	var resp modificationResponse
	if err := p.llm.GenerateJSON(ctx, buildCodemodPrompt(t.Prompt, originals), &resp); err != nil {
		return plugin.Update{}, fmt.Errorf("llm modification call: %w", err)
	}

	mods := make(map[string]string, len(resp.Modifications))
	for _, m := range resp.Modifications {
		rel := permission.Normalize(m.FilePath)
		if _, ok := originals[rel]; !ok {
			return plugin.Update{}, fmt.Errorf("llm proposed change to non-target file %q", rel)
		}

		formatted, err := p.formatter.Format(ctx, rel, m.NewContent)
		if err != nil {
			return plugin.Update{}, fmt.Errorf("format proposed %s: %w", rel, err)
		}
		mods[rel] = formatted
	}

	diff, err := p.buildDiff(ctx, originals, mods)
	if err != nil {
		return plugin.Update{}, err
	}

	blob, err := json.Marshal(codemodContext{Modifications: mods})
	if err != nil {
		return plugin.Update{}, fmt.Errorf("encode codemod context: %w", err)
	}

	if diff == "" {
		// No-op proposal: review it as information, nothing to test or apply.
		return plugin.Update{
			Status:         task.StatusAwaitingReview,
			Context:        blob,
			LLMExplanation: resp.Explanation,
		}, nil
	}

	return plugin.Update{
		Status:         task.StatusTesting,
		Context:        blob,
		LLMExplanation: resp.Explanation,
		ProposedDiff:   diff,
	}, nil
}

// test copies the working tree into a sandbox, applies the proposed bodies
// and runs the configured test command. Pass or fail, the task proceeds to
// review with the raw output attached.
func (p *CodeModifierPlugin) test(ctx context.Context, t *task.Task) (plugin.Update, error) {
	var cc codemodContext
	if err := json.Unmarshal(t.Context, &cc); err != nil {
		return plugin.Update{}, fmt.Errorf("decode codemod context: %w", err)
	}

	sandbox, err := os.MkdirTemp("", "frankie-sandbox-*")
	if err != nil {
		return plugin.Update{}, fmt.Errorf("create sandbox: %w", err)
	}
	defer func() { _ = os.RemoveAll(sandbox) }()

	if err := copyTree(p.workspace, sandbox); err != nil {
		return plugin.Update{}, fmt.Errorf("populate sandbox: %w", err)
	}
	for rel, body := range cc.Modifications {
		if err := writeSandboxFile(sandbox, rel, body); err != nil {
			return plugin.Update{}, err
		}
	}

	result, err := p.tests.Run(ctx, sandbox)
	if err != nil {
		return plugin.Update{}, fmt.Errorf("sandbox test run: %w", err)
	}

	status := task.TestFail
	if result.Passed {
		status = task.TestPass
	}
	return plugin.Update{
		Status:      task.StatusAwaitingReview,
		TestStatus:  status,
		TestResults: result.RawOutput,
	}, nil
}

// commit applies the stored diff to the real tree. Commit failure surfaces as
// an error so the orchestrator preserves the diff in the error state and the
// admin can retry with a new task instead of losing the approved change.
func (p *CodeModifierPlugin) commit(ctx context.Context, t *task.Task) (plugin.Update, error) {
	if t.ProposedDiff == "" {
		// Approved no-op: nothing to commit.
		return plugin.Update{Status: task.StatusApplied}, nil
	}

	msg := fmt.Sprintf("%s apply task %s", p.prefix, t.ID)
	hash, err := p.committer.ApplyAndCommit(ctx, p.workspace, t.ProposedDiff, msg)
	if err != nil {
		return plugin.Update{}, fmt.Errorf("apply approved diff: %w", err)
	}

	return plugin.Update{Status: task.StatusApplied, CommitHash: hash}, nil
}

func (p *CodeModifierPlugin) buildDiff(ctx context.Context, originals, mods map[string]string) (string, error) {
	rels := make([]string, 0, len(mods))
	for rel := range mods {
		rels = append(rels, rel)
	}
	sort.Strings(rels)

	tmp, err := os.MkdirTemp("", "frankie-diff-*")
	if err != nil {
		return "", fmt.Errorf("create diff dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	var sb strings.Builder
	for i, rel := range rels {
		if mods[rel] == originals[rel] {
			continue
		}

		oldPath := filepath.Join(tmp, fmt.Sprintf("old-%d", i))
		newPath := filepath.Join(tmp, fmt.Sprintf("new-%d", i))
		if err := os.WriteFile(oldPath, []byte(originals[rel]), 0o600); err != nil {
			return "", fmt.Errorf("stage original %s: %w", rel, err)
		}
		if err := os.WriteFile(newPath, []byte(mods[rel]), 0o600); err != nil {
			return "", fmt.Errorf("stage proposal %s: %w", rel, err)
		}

		d, err := gitcli.DiffFiles(ctx, oldPath, newPath, rel)
		if err != nil {
			return "", fmt.Errorf("diff %s: %w", rel, err)
		}
		sb.WriteString(d)
	}
	return sb.String(), nil
}

func buildCodemodPrompt(prompt string, originals map[string]string) string {
	rels := make([]string, 0, len(originals))
	for rel := range originals {
		rels = append(rels, rel)
	}
	sort.Strings(rels)

	var sb strings.Builder
	sb.WriteString("You are a careful software engineer modifying an application's source.\n")
	sb.WriteString("Task: ")
	sb.WriteString(prompt)
	sb.WriteString("\n\nCurrent file contents follow. Respond with STRICT JSON only, shaped as\n")
	sb.WriteString(`{"explanation": "...markdown...", "modifications": [{"file_path": "...", "new_content": "..."}]}`)
	sb.WriteString("\nEach new_content must be the COMPLETE new file body. Only modify the files listed.\n")
	for _, rel := range rels {
		sb.WriteString("\n--- FILE: ")
		sb.WriteString(rel)
		sb.WriteString(" ---\n")
		if originals[rel] == "" {
			sb.WriteString("(file does not exist yet)\n")
		} else {
			sb.WriteString(originals[rel])
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
