package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Strob0t/ReplyForge/internal/domain/draft"
	"github.com/Strob0t/ReplyForge/internal/domain/policy"
	"github.com/Strob0t/ReplyForge/internal/domain/review"
)

var errBlocked = errors.New("reply blocked by policy")

type policyCheckOutput struct {
	policy.Result
	Status draft.Status `json:"status"`
	Rule   string       `json:"rule"`
}

type sanitizeOutput struct {
	Content  string   `json:"content"`
	PIIFound []string `json:"pii_found"`
}

func newPolicyCmd() *cobra.Command {
	var rulesFile string

	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Check or sanitize reply text offline",
	}
	cmd.PersistentFlags().StringVar(&rulesFile, "rules", "", "YAML rule set (default: built-in rules)")

	checker := func() (*policy.Checker, error) {
		if rulesFile == "" {
			return policy.Default(), nil
		}
		rs, err := policy.LoadRules(rulesFile)
		if err != nil {
			return nil, err
		}
		return policy.NewChecker(rs)
	}

	var (
		rating int
		lang   string
	)
	check := &cobra.Command{
		Use:   "check [text]",
		Short: "Check a reply for a review rating; reads stdin when no text is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rv := review.Review{Rating: rating}
			if err := rv.Validate(); err != nil {
				return err
			}
			c, err := checker()
			if err != nil {
				return err
			}
			content, err := inputText(cmd, args)
			if err != nil {
				return err
			}

			res := c.Check(content, rating, lang)
			status, rule := draft.Decide(res, rating)
			if err := writeIndented(cmd.OutOrStdout(), policyCheckOutput{Result: res, Status: status, Rule: rule}); err != nil {
				return err
			}
			if res.Blocked {
				return errBlocked
			}
			return nil
		},
	}
	check.Flags().IntVar(&rating, "rating", 5, "star rating of the review (1-5)")
	check.Flags().StringVar(&lang, "lang", "en", "language code of the reply")

	sanitize := &cobra.Command{
		Use:   "sanitize [text]",
		Short: "Mask personal data in text; reads stdin when no text is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := checker()
			if err != nil {
				return err
			}
			content, err := inputText(cmd, args)
			if err != nil {
				return err
			}
			found := c.PIIFound(content)
			if found == nil {
				found = []string{}
			}
			return writeIndented(cmd.OutOrStdout(), sanitizeOutput{Content: c.Sanitize(content), PIIFound: found})
		},
	}

	cmd.AddCommand(check, sanitize)
	return cmd
}

func inputText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.New("no text given")
	}
	return text, nil
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
