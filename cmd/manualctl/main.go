package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	topicProfile string
	llmProvider  string
	llmModel     string
)

func main() {
	root := &cobra.Command{
		Use:   "manualctl",
		Short: "Index vehicle manuals and ask questions about them",
		Long: "manualctl runs the manual chatbot in a single process: it indexes the given " +
			"documents into a throwaway session, then answers questions against them.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&topicProfile, "profile", "", "topic gate profile (default from TOPIC_PROFILE)")
	root.PersistentFlags().StringVar(&llmProvider, "llm", "", "LLM provider override: ollama, gemini or huggingface")
	root.PersistentFlags().StringVar(&llmModel, "model", "", "LLM model override")

	root.AddCommand(chatCmd())
	root.AddCommand(askCmd())
	root.AddCommand(gateCmd())
	root.AddCommand(eventsCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
