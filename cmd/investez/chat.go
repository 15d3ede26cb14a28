package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/seenimoa/investez/internal/agent"
	"github.com/seenimoa/investez/internal/intent"
	"github.com/seenimoa/investez/internal/store"
)

// ── Chat Command ──

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive research conversation",
	Long: `Start an interactive conversation with the research assistant.
The conversation is saved automatically and can be resumed later:

  investez chat
  investez chat --session 2025-08-25_analyzing-reliance`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d := buildDeps()

		sessions, err := conversationStore()
		if err != nil {
			return err
		}

		sessionID, _ := cmd.Flags().GetString("session")
		orch := agent.NewOrchestrator(agent.OrchestratorConfig{
			Stock:  d.stockAgent(),
			MF:     d.mfAgent(),
			News:   d.newsAgent(),
			Logger: logger,
		})

		if sessionID != "" {
			conv, err := sessions.Load(sessionID)
			if err != nil {
				return fmt.Errorf("load session %q: %w", sessionID, err)
			}
			orch.AttachSession(conv)
			fmt.Printf("💬 Resuming %q (%d messages)\n\n", conv.Name, len(conv.Messages))
		} else {
			fmt.Println("💬 InvestEz — Investment Research Assistant")
			fmt.Println("   Type 'help' for commands, 'exit' to quit.")
			fmt.Println()
		}

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("You: ")
			if !scanner.Scan() {
				break
			}
			query := strings.TrimSpace(scanner.Text())
			if query == "" {
				continue
			}

			// Name the session after the first real message.
			if orch.Session() == nil {
				conv := sessions.Create(store.AutoGenerateName(query))
				orch.AttachSession(conv)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			resp := orch.Process(ctx, query)
			cancel()

			fmt.Println("\n" + resp.Text + "\n")

			if err := sessions.Save(orch.Session()); err != nil {
				logger.Warn().Err(err).Msg("session save failed")
			}

			if intent.IsExitCommand(query) {
				return nil
			}
		}
		return scanner.Err()
	},
}

// ── Ask Command ──

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and exit",
	Long: `Ask a one-shot question without starting a conversation:

  investez ask "Tell me about RELIANCE"
  investez ask "Compare TCS vs Infosys"
  investez ask "What is the NAV of Parag Parikh Flexi Cap?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d := buildDeps()

		orch := agent.NewOrchestrator(agent.OrchestratorConfig{
			Stock:  d.stockAgent(),
			MF:     d.mfAgent(),
			News:   d.newsAgent(),
			Logger: logger,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		resp := orch.Process(ctx, strings.Join(args, " "))
		fmt.Println(resp.Text)
		return nil
	},
}

func init() {
	chatCmd.Flags().String("session", "", "session ID to resume (partial match supported)")
}

// ── Sessions Commands ──

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved conversations",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := conversationStore()
		if err != nil {
			return err
		}

		limit, _ := cmd.Flags().GetInt("limit")
		summaries, err := sessions.List(limit)
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			fmt.Println("No saved conversations.")
			return nil
		}

		for _, s := range summaries {
			fmt.Printf("  %-45s %-30s %3d messages  %s\n",
				s.SessionID, s.Name, s.MessageCount, s.UpdatedAt.Format("02 Jan 2006 15:04"))
		}
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show [session_id]",
	Short: "Print a saved conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := conversationStore()
		if err != nil {
			return err
		}

		conv, err := sessions.Load(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s (%s)\n\n", conv.Name, conv.SessionID)
		for _, m := range conv.Messages {
			role := "You"
			if m.Role == "assistant" {
				role = "InvestEz"
			}
			fmt.Printf("%s: %s\n\n", role, m.Content)
		}
		return nil
	},
}

var sessionsRenameCmd = &cobra.Command{
	Use:   "rename [session_id] [new_name]",
	Short: "Rename a saved conversation",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := conversationStore()
		if err != nil {
			return err
		}

		conv, err := sessions.Rename(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("✅ Renamed to %q\n", conv.Name)
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete [session_id]",
	Short: "Delete a saved conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := conversationStore()
		if err != nil {
			return err
		}

		if err := sessions.Delete(args[0]); err != nil {
			return err
		}
		fmt.Println("✅ Deleted.")
		return nil
	},
}

func init() {
	sessionsListCmd.Flags().Int("limit", 20, "maximum conversations to list")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsRenameCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
}
