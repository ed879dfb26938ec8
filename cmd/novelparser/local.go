package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/novelparser/internal/api"
	"github.com/jackzampolin/novelparser/internal/ingest"
	"github.com/jackzampolin/novelparser/internal/jobs"
	"github.com/jackzampolin/novelparser/internal/progress"
	"github.com/jackzampolin/novelparser/internal/types"
)

// Commands in this file run the pipeline in-process against the local
// database, without a server.

// stderrProgress prints progress lines to stderr.
func stderrProgress() progress.Sink {
	var mu sync.Mutex
	return progress.Funcs{
		OnProgress: func(ev types.ProgressEvent) {
			mu.Lock()
			defer mu.Unlock()
			if ev.Total > 0 {
				fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", ev.Current, ev.Total, ev.Message)
				return
			}
			fmt.Fprintln(os.Stderr, ev.Message)
		},
	}
}

func parseDimensionFlags(raw []string) ([]types.AnalysisDimension, error) {
	var dims []types.AnalysisDimension
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			d, err := types.ParseDimension(part)
			if err != nil {
				return nil, err
			}
			dims = append(dims, d)
		}
	}
	return dims, nil
}

func parseChapterIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid chapter id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

var (
	importTitle      string
	importDimensions []string
)

var importCmd = &cobra.Command{
	Use:   "import <file-or-dir>...",
	Short: "Import a novel from UTF-8 text files (one file per chapter)",
	Long: `Import a novel into the local database.

Each .txt file is one chapter, titled by its file name. Directories are
expanded and their files ordered by the first number in each name.

Examples:
  novelparser import ./mynovel/                     # every .txt in the dir
  novelparser import ch1.txt ch2.txt --title 书名
  novelparser import ./mynovel --dimensions plot,themes`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dims, err := parseDimensionFlags(importDimensions)
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := ingest.Import(cmd.Context(), a.services.Store, ingest.Request{
			Paths:      args,
			Title:      importTitle,
			Dimensions: dims,
			Logger:     a.logger,
		})
		if err != nil {
			return err
		}
		return api.Output(res)
	},
}

var analyzeChapters []string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <novel-id>",
	Short: "Analyze a novel's chapters",
	Long: `Analyze chapters of a novel with the configured model.

Without --chapters every chapter lacking an analysis is analyzed. Ctrl+C
stops dispatching new chapters; chapters already waiting on the model
finish and are saved.

Examples:
  novelparser analyze <novel-id>
  novelparser analyze <novel-id> --chapters 3,4,5`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var selected []int64
		if len(analyzeChapters) > 0 {
			ids, err := parseChapterIDs(analyzeChapters)
			if err != nil {
				return err
			}
			selected = ids
		}

		a, err := newApp(cmd.Context(), stderrProgress())
		if err != nil {
			return err
		}
		defer a.Close()

		sched := a.services.Scheduler
		// The interrupt only cancels dispatch; the batch itself runs on a
		// context that in-flight calls can finish under.
		runCtx := context.WithoutCancel(cmd.Context())
		stop := context.AfterFunc(cmd.Context(), sched.Cancel)
		defer stop()

		var res *jobs.BatchResult
		if selected != nil {
			res, err = sched.AnalyzeSelected(runCtx, args[0], selected)
		} else {
			res, err = sched.AnalyzeUnanalyzed(runCtx, args[0])
		}
		if err != nil {
			return err
		}
		return api.Output(res)
	},
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize <novel-id>",
	Short: "Build the book summary from the analyzed chapters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), stderrProgress())
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.services.Reducer.Summarize(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return api.Output(summary)
	},
}

var (
	promptDimensions []string
	promptApply      string
)

var promptCmd = &cobra.Command{
	Use:   "prompt <chapter-id>",
	Short: "Print a chapter's analysis prompt, or save a pasted result",
	Long: `Manual mode: print the whole-chapter prompt to run through a model
yourself, with its token estimate on stderr. With --apply, parse the model's
JSON answer from a file ("-" for stdin) and save it as the chapter analysis.

Examples:
  novelparser prompt 12 --dimensions plot,characters > prompt.txt
  novelparser prompt 12 --apply answer.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseChapterIDs(args)
		if err != nil {
			return err
		}
		dims, err := parseDimensionFlags(promptDimensions)
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		st := a.services.Store

		if cmd.Flags().Changed("apply") {
			raw, err := readFileArg(cmd, promptApply)
			if err != nil {
				return err
			}
			result, err := jobs.ApplyManualResult(cmd.Context(), st, ids[0], raw)
			if err != nil {
				return err
			}
			return api.Output(result)
		}

		mp, err := jobs.ChapterManualPrompt(cmd.Context(), st, ids[0], dims)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "estimated tokens: %d\n", mp.Tokens)
		fmt.Fprintln(cmd.OutOrStdout(), mp.Prompt)
		return nil
	},
}

func readFileArg(cmd *cobra.Command, path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func init() {
	importCmd.Flags().StringVar(&importTitle, "title", "", "Novel title (default: derived from the first file)")
	importCmd.Flags().StringSliceVar(&importDimensions, "dimensions", nil, "Enabled analysis dimensions (default: characters,plot,foreshadowing,writing_technique)")

	analyzeCmd.Flags().StringSliceVar(&analyzeChapters, "chapters", nil, "Chapter ids to analyze (default: every unanalyzed chapter)")

	promptCmd.Flags().StringSliceVar(&promptDimensions, "dimensions", nil, "Dimensions to request (default: the default dimensions)")
	promptCmd.Flags().StringVar(&promptApply, "apply", "", `Parse and save a model answer from this file ("-" for stdin)`)

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(promptCmd)
}
