package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/HendryAvila/prdkb/internal/engine"
	"github.com/HendryAvila/prdkb/internal/knowledge"
)

func (a *app) fragmentCmd() *cobra.Command {
	fragmentCmd := &cobra.Command{
		Use:   "fragment",
		Short: "Manage source fragments",
	}

	var (
		projectName string
		frag        knowledge.Fragment
		summaryFile string
	)
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Ingest one source fragment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if summaryFile != "" {
				data, err := readInput(summaryFile)
				if err != nil {
					return err
				}
				frag.Summary = string(data)
			}
			return a.withEngine(func(eng *engine.Engine) error {
				if err := eng.AddFragment(cmd.Context(), projectName, &frag); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "fragment %s added to project %s\n", frag.ID, frag.ProjectID)
				return nil
			})
		},
	}
	addCmd.Flags().StringVar(&frag.ProjectID, "project", "", "project id")
	addCmd.Flags().StringVar(&projectName, "name", "", "project name, recorded on first use")
	addCmd.Flags().StringVar(&frag.SourceName, "source", "", "source document name")
	addCmd.Flags().StringVar(&frag.SourceKind, "kind", "document", "source kind")
	addCmd.Flags().StringVar(&frag.Summary, "summary", "", "fragment summary")
	addCmd.Flags().StringVar(&summaryFile, "summary-file", "", "read the summary from a file ('-' for stdin)")
	addCmd.Flags().StringSliceVar(&frag.Entities, "entity", nil, "key entity (repeatable)")
	addCmd.Flags().StringSliceVar(&frag.References, "reference", nil, "reference (repeatable)")
	_ = addCmd.MarkFlagRequired("project")
	_ = addCmd.MarkFlagRequired("source")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List a project's fragments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			projectID, _ := cmd.Flags().GetString("project")
			return a.withEngine(func(eng *engine.Engine) error {
				frags, err := eng.ListFragments(cmd.Context(), projectID)
				if err != nil {
					return err
				}
				for _, f := range frags {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", f.ID, f.SourceKind, f.SourceName)
				}
				return nil
			})
		},
	}
	listCmd.Flags().String("project", "", "project id")
	_ = listCmd.MarkFlagRequired("project")

	fragmentCmd.AddCommand(addCmd, listCmd)
	return fragmentCmd
}

func (a *app) buildCmd() *cobra.Command {
	var projectID, projectName string
	var force bool
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Synthesize the knowledge base from the project's fragments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(func(eng *engine.Engine) error {
				res, err := eng.Build(cmd.Context(), projectID, projectName, force)
				if err != nil {
					return err
				}
				doc := res.Document
				out := cmd.OutOrStdout()
				switch {
				case !res.Created:
					fmt.Fprintf(out, "knowledge base already exists at version %d (use --force to rebuild)\n", doc.Version)
				case res.Degraded:
					fmt.Fprintf(out, "built version %d, but the model output could not be parsed; review the pending question\n", doc.Version)
				default:
					fmt.Fprintf(out, "built version %d with %d modules\n", doc.Version, len(doc.FeatureModules))
				}
				for i, q := range doc.PendingQuestions {
					fmt.Fprintf(out, "  %d. %s\n", i+1, q.Question)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	cmd.Flags().StringVar(&projectName, "name", "", "project name")
	cmd.Flags().BoolVar(&force, "force", false, "rebuild even if a knowledge base exists")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func (a *app) confirmCmd() *cobra.Command {
	var projectID, answersFile string
	var answerFlags []string
	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Confirm the knowledge base, recording answers to its open questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			answers, err := collectAnswers(answersFile, answerFlags)
			if err != nil {
				return err
			}
			return a.withEngine(func(eng *engine.Engine) error {
				doc, err := eng.Confirm(cmd.Context(), projectID, answers)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "confirmed at version %d with %d answers\n", doc.Version, len(answers))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	cmd.Flags().StringVar(&answersFile, "answers-file", "", "YAML map of question to answer")
	cmd.Flags().StringArrayVar(&answerFlags, "answer", nil, "answer as 'question=answer' (repeatable)")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

// collectAnswers merges the answers file with --answer flags; flags win.
func collectAnswers(path string, flags []string) (map[string]string, error) {
	answers := map[string]string{}
	if path != "" {
		data, err := readInput(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &answers); err != nil {
			return nil, fmt.Errorf("parsing answers file: %w", err)
		}
	}
	for _, f := range flags {
		q, ans, ok := strings.Cut(f, "=")
		if !ok || strings.TrimSpace(q) == "" {
			return nil, fmt.Errorf("invalid --answer %q: want 'question=answer'", f)
		}
		answers[strings.TrimSpace(q)] = strings.TrimSpace(ans)
	}
	return answers, nil
}

func (a *app) completeCmd() *cobra.Command {
	var (
		projectID      string
		req            knowledge.Requirement
		transcriptFile string
	)
	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Fold a completed requirement into the knowledge base",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var transcript string
			if transcriptFile != "" {
				data, err := readInput(transcriptFile)
				if err != nil {
					return err
				}
				transcript = string(data)
			}
			return a.withEngine(func(eng *engine.Engine) error {
				res, err := eng.CompleteRequirement(cmd.Context(), projectID, req, transcript)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "filed under %s at version %d\n", res.Outcome.Module, res.Document.Version)
				if res.Outcome.Duplicate {
					fmt.Fprintf(out, "origin %q was already archived; the ledger was left unchanged\n", req.OriginReference)
				}
				if res.Outcome.Fallback {
					fmt.Fprintln(out, "classification failed; the requirement was placed in the fallback module")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	cmd.Flags().StringVar(&req.OriginReference, "origin", "", "origin reference (ticket, PR)")
	cmd.Flags().StringVar(&req.Title, "title", "", "requirement title")
	cmd.Flags().StringVar(&req.Description, "description", "", "requirement description")
	cmd.Flags().StringArrayVar(&req.KeyPoints, "key-point", nil, "key point (repeatable)")
	cmd.Flags().BoolVar(&req.PRDGenerated, "prd-generated", false, "a PRD was generated for this requirement")
	cmd.Flags().StringVar(&transcriptFile, "transcript-file", "", "conversation transcript file ('-' for stdin)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("origin")
	return cmd
}

func (a *app) searchCmd() *cobra.Command {
	var projectID string
	var filters knowledge.Filters
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the confirmed knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return a.withEngine(func(eng *engine.Engine) error {
				results, err := eng.Search(cmd.Context(), projectID, query, filters)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(results) == 0 {
					fmt.Fprintln(out, "no results")
					return nil
				}
				for i, r := range results {
					fmt.Fprintf(out, "%d. [%s] %s (%.1f)\n", i+1, r.Type, r.Title, r.Score)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	cmd.Flags().StringVar(&filters.Type, "type", "", "result type filter")
	cmd.Flags().StringVar(&filters.Module, "module", "", "module name filter")
	cmd.Flags().IntVar(&filters.Limit, "limit", 10, "maximum results")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func (a *app) contextCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Print the confirmed knowledge base as prompt context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(func(eng *engine.Engine) error {
				text, ok, err := eng.GetConfirmedContext(cmd.Context(), projectID)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("project %q has no confirmed knowledge base", projectID)
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the knowledge base as JSON, in any status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(func(eng *engine.Engine) error {
				doc, err := eng.Get(cmd.Context(), projectID)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(doc)
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func (a *app) projectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List known projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(func(eng *engine.Engine) error {
				projects, err := eng.ListProjects(cmd.Context())
				if err != nil {
					return err
				}
				for _, p := range projects {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p.ID, p.Name)
				}
				return nil
			})
		},
	}
}

// readInput reads a file, or stdin when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}
