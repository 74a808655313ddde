package main

import (
	"strings"

	"manual-chatbot-be/pkg/rag/topic"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func gateCmd() *cobra.Command {
	var keywordsFile string
	cmd := &cobra.Command{
		Use:   "gate QUESTION",
		Short: "Show the topic gate verdict for a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if keywordsFile == "" {
				keywordsFile = cfg.Query.TopicKeywordsFile
			}

			var (
				g   *topic.Gate
				err error
			)
			if keywordsFile != "" {
				g, err = topic.LoadFile(keywordsFile, cfg.Query.TopicProfile)
			} else {
				g, err = topic.New(cfg.Query.TopicProfile)
			}
			if err != nil {
				return err
			}

			r := g.Evaluate(strings.Join(args, " "))
			if r.Related {
				color.Green("related to %s (confidence %.1f)", g.Subject(), r.Confidence)
			} else {
				color.Red("not related to %s (confidence %.1f)", g.Subject(), r.Confidence)
			}
			if len(r.Matched) > 0 {
				color.HiBlack("matched: %s", strings.Join(r.Matched, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&keywordsFile, "keywords", "", "YAML keyword file (default: built-in profiles)")
	return cmd
}
