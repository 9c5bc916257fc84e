package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/elum-utils/toxicity/core"
	"github.com/elum-utils/toxicity/models"
)

const maxLineBytes = 1 << 20

func newScoreCmd(opts *rootOptions) *cobra.Command {
	var imagePath, id string
	cmd := &cobra.Command{
		Use:   "score [text|-]",
		Short: "Moderate one text and an optional image",
		Long:  "Moderate one text and an optional image. With no text argument and no image, or with -, text is read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			content := models.Content{ID: id}
			if imagePath != "" {
				data, err := os.ReadFile(imagePath)
				if err != nil {
					return fmt.Errorf("read image: %w", err)
				}
				content.Image = data
			}
			if len(args) > 0 || imagePath == "" {
				text, err := readText(cmd.InOrStdin(), args)
				if err != nil {
					return err
				}
				content.Text = text
			}
			if content.Empty() {
				return errors.New("nothing to moderate: provide text or --image")
			}

			m, err := opts.app.core.ProcessContent(cmd.Context(), content)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), m)
			}
			printModeration(cmd.OutOrStdout(), content.Text, m)
			return nil
		},
	}
	cmd.Flags().StringVar(&imagePath, "image", "", "image file to moderate alongside the text")
	cmd.Flags().StringVar(&id, "id", "", "content identifier echoed in events and output")
	return cmd
}

type batchOutput struct {
	Count   int              `json:"count"`
	Toxic   int              `json:"toxic"`
	Results []models.Summary `json:"results"`
}

func newBatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "batch [file|-]",
		Short: "Moderate one text per line and print ordered summaries",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			texts, err := readLines(in)
			if err != nil {
				return err
			}
			if len(texts) == 0 {
				return errors.New("batch: no texts provided")
			}

			contents := make([]models.Content, len(texts))
			for i, t := range texts {
				contents[i] = models.Content{ID: fmt.Sprintf("line-%d", i+1), Text: t}
			}
			moderations, err := opts.app.core.ProcessBatch(cmd.Context(), contents)
			if err != nil {
				return err
			}

			out := batchOutput{Count: len(moderations), Results: make([]models.Summary, len(moderations))}
			for i, m := range moderations {
				out.Results[i] = core.SummarizeModeration(texts[i], m, core.BatchExcerptLength)
				if m.Toxic {
					out.Toxic++
				}
			}
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			w := cmd.OutOrStdout()
			for _, s := range out.Results {
				fmt.Fprintf(w, "%-8s %.3f %-5t %s\n", s.Severity, s.Score, s.Toxic, s.Text)
			}
			fmt.Fprintf(w, "%d texts, %d toxic\n", out.Count, out.Toxic)
			return nil
		},
	}
}

type lexiconEntry struct {
	Name     string  `json:"name"`
	Weight   float64 `json:"weight"`
	Color    string  `json:"color,omitempty"`
	Terms    int     `json:"terms"`
	Patterns int     `json:"patterns"`
}

func newLexiconCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lexicon",
		Short: "List the loaded categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cats := opts.app.core.Lexicon().Categories()
			entries := make([]lexiconEntry, 0, len(cats))
			for _, c := range cats {
				entries = append(entries, lexiconEntry{
					Name:     c.Name(),
					Weight:   c.Weight(),
					Color:    c.Color(),
					Terms:    len(c.Terms()),
					Patterns: len(c.Patterns()),
				})
			}
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%-18s weight=%.1f terms=%d patterns=%d %s\n", e.Name, e.Weight, e.Terms, e.Patterns, e.Color)
			}
			return nil
		},
	}
}

type healthOutput struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	core.Health
}

func newHealthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Report what the engine has loaded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := healthOutput{Status: "healthy", Version: version, Health: opts.app.core.Health()}
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "status:     %s\n", out.Status)
			fmt.Fprintf(w, "version:    %s\n", out.Version)
			fmt.Fprintf(w, "categories: %d\n", out.Categories)
			if out.TextClassifier != "" {
				fmt.Fprintf(w, "text model: %s\n", out.TextClassifier)
			}
			if out.ImageClassifier != "" {
				fmt.Fprintf(w, "image model: %s\n", out.ImageClassifier)
			}
			return nil
		},
	}
}

func printModeration(w io.Writer, text string, m models.Moderation) {
	if text != "" {
		fmt.Fprintf(w, "text:       %s\n", models.Excerpt(text, core.ExcerptLength))
	}
	fmt.Fprintf(w, "score:      %.3f\n", m.Score)
	fmt.Fprintf(w, "toxic:      %t\n", m.Toxic)
	fmt.Fprintf(w, "severity:   %s\n", m.Severity)
	if m.Warning != "" {
		fmt.Fprintf(w, "warning:    %s\n", m.Warning)
	}
	if s := core.SummarizeModeration(text, m, 0); len(s.Categories) > 0 {
		fmt.Fprintf(w, "categories: %s\n", strings.Join(s.Categories, ", "))
	}
	fmt.Fprintf(w, "modalities: %s\n", strings.Join(m.Combined.Modalities(), ", "))
	if m.Fallback {
		fmt.Fprintln(w, "fallback:   rules (classifier unavailable)")
	}
}

func readText(in io.Reader, args []string) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// readLines returns non-blank lines in order.
func readLines(in io.Reader) ([]string, error) {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	var out []string
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read lines: %w", err)
	}
	return out, nil
}
