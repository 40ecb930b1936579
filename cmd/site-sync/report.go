package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yuya-takeyama/site-sync/pkg/planner"
	"github.com/yuya-takeyama/site-sync/pkg/syncer"
)

// PlanResult represents the planned operations before execution
type PlanResult struct {
	Files   []PlanFile  `json:"files"`
	Summary PlanSummary `json:"summary"`
}

type PlanFile struct {
	Action string `json:"action"` // "create", "update", "delete", "keep"
	Source string `json:"source,omitempty"`
	Target string `json:"target"`
	Size   int64  `json:"size"`
	MD5    string `json:"md5"`
	Reason string `json:"reason"`
}

type PlanSummary struct {
	Create int `json:"create"`
	Update int `json:"update"`
	Delete int `json:"delete"`
	Keep   int `json:"keep"`
}

// SyncResult represents the actual execution results
type SyncResult struct {
	Files   []ResultFile  `json:"files"`
	Errors  []ErrorFile   `json:"errors"`
	Summary ResultSummary `json:"summary"`
}

type ResultFile struct {
	Action string `json:"action"` // "created", "updated", "deleted", "kept"
	Source string `json:"source,omitempty"`
	Target string `json:"target"`
}

type ErrorFile struct {
	Action string `json:"action"` // "create", "update", "delete"
	Source string `json:"source,omitempty"`
	Target string `json:"target"`
	Error  string `json:"error"`
}

type ResultSummary struct {
	Created       int    `json:"created"`
	Updated       int    `json:"updated"`
	Deleted       int    `json:"deleted"`
	Kept          int    `json:"kept"`
	Failed        int    `json:"failed"`
	BytesUploaded int64  `json:"bytes_uploaded"`
	Duration      string `json:"duration"`
}

func newPlanResult(items []planner.Item, target func(string) string) PlanResult {
	plan := PlanResult{Files: []PlanFile{}}

	for _, item := range items {
		action := actionName(item)
		file := PlanFile{
			Action: action,
			Target: target(item.Key),
			Size:   item.Size,
			MD5:    item.Digest,
			Reason: item.Reason,
		}
		if item.Action == planner.ActionUpload {
			file.Source = getAbsolutePath(item.LocalPath)
		}

		switch action {
		case "create":
			plan.Summary.Create++
		case "update":
			plan.Summary.Update++
		case "delete":
			plan.Summary.Delete++
		case "keep":
			plan.Summary.Keep++
		}
		plan.Files = append(plan.Files, file)
	}

	return plan
}

func newSyncResult(report *syncer.Report, target func(string) string) SyncResult {
	result := SyncResult{
		Files:  []ResultFile{},
		Errors: []ErrorFile{},
		Summary: ResultSummary{
			BytesUploaded: report.BytesUploaded,
			Duration:      report.Duration.String(),
		},
	}

	for _, r := range report.Results {
		item := r.Item
		var source string
		if item.Action == planner.ActionUpload {
			source = getAbsolutePath(item.LocalPath)
		}

		if r.Error != nil {
			result.Errors = append(result.Errors, ErrorFile{
				Action: actionName(item),
				Source: source,
				Target: target(item.Key),
				Error:  r.Error.Error(),
			})
			result.Summary.Failed++
			continue
		}

		var past string
		switch actionName(item) {
		case "create":
			past = "created"
			result.Summary.Created++
		case "update":
			past = "updated"
			result.Summary.Updated++
		case "delete":
			past = "deleted"
			result.Summary.Deleted++
		case "keep":
			past = "kept"
			result.Summary.Kept++
		}
		result.Files = append(result.Files, ResultFile{Action: past, Source: source, Target: target(item.Key)})
	}

	return result
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

func actionName(item planner.Item) string {
	switch item.Action {
	case planner.ActionUpload:
		if item.IsNew() {
			return "create"
		}
		return "update"
	case planner.ActionDelete:
		return "delete"
	case planner.ActionKeep:
		return "keep"
	default:
		return "unknown"
	}
}

func getAbsolutePath(path string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}
