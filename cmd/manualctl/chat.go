package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"manual-chatbot-be/internal/bootstrap"
	"manual-chatbot-be/internal/dto"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func chatCmd() *cobra.Command {
	var label string
	cmd := &cobra.Command{
		Use:   "chat [files...]",
		Short: "Index documents, then chat about them interactively",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, err := openContainer(loadConfig())
			if err != nil {
				return err
			}
			defer c.Close()

			id, err := indexFiles(ctx, c, label, args)
			if err != nil {
				return err
			}
			defer c.SessionService.Delete(context.Background(), id)

			return chatLoop(ctx, c, id)
		},
	}
	cmd.Flags().StringVar(&label, "label", "Vehicle", "vehicle name shown in answers")
	return cmd
}

func askCmd() *cobra.Command {
	var (
		label    string
		question string
	)
	cmd := &cobra.Command{
		Use:   "ask -q QUESTION [files...]",
		Short: "Index documents and answer a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			c, err := openContainer(loadConfig())
			if err != nil {
				return err
			}
			defer c.Close()

			id, err := indexFiles(ctx, c, label, args)
			if err != nil {
				return err
			}
			defer c.SessionService.Delete(ctx, id)

			return answer(ctx, c, id, question)
		},
	}
	cmd.Flags().StringVar(&label, "label", "Vehicle", "vehicle name shown in answers")
	cmd.Flags().StringVarP(&question, "question", "q", "", "question to ask")
	_ = cmd.MarkFlagRequired("question")
	return cmd
}

func chatLoop(ctx context.Context, c *bootstrap.Container, sessionID string) error {
	color.Cyan("Ask a question. Commands: history, clear, quit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(color.BlueString("\nYou: "))
		if !scanner.Scan() {
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit", "q":
			color.Cyan("Bye!")
			return nil
		case "clear":
			if err := c.ChatService.Clear(ctx, sessionID); err != nil {
				return err
			}
			color.Yellow("History cleared")
			continue
		case "history":
			printHistory(ctx, c, sessionID)
			continue
		}

		if err := answer(ctx, c, sessionID, line); err != nil {
			// A failed answer does not end the conversation.
			color.Red("Error: %v", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func answer(ctx context.Context, c *bootstrap.Container, sessionID, question string) error {
	res, err := c.ChatService.Ask(ctx, sessionID, &dto.ChatRequest{Message: question})
	if err != nil {
		return err
	}

	fmt.Printf("\n%s %s\n", color.GreenString("Bot:"), res.Response)
	for _, src := range res.Sources {
		color.HiBlack("  [%s p.%d]", src.SourceFile, src.Page)
	}
	return nil
}

func printHistory(ctx context.Context, c *bootstrap.Container, sessionID string) {
	turns, err := c.ChatService.History(ctx, sessionID)
	if err != nil {
		color.Red("Error: %v", err)
		return
	}
	if len(turns) == 0 {
		color.Yellow("No messages yet")
		return
	}
	for _, t := range turns {
		fmt.Printf("%s %s: %s\n", t.Timestamp.Format("15:04:05"), t.Role, t.Content)
	}
}
