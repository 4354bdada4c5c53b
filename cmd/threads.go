package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zdx-sub/zdx/internal/thread"
)

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "Inspect and manage conversation threads",
}

var threadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List threads, newest first",
	RunE:  runThreadsList,
}

var threadsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a thread's replayed messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runThreadsShow,
}

var threadsRenameCmd = &cobra.Command{
	Use:   "rename <id> <title>",
	Short: "Set a thread's title",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runThreadsRename,
}

var threadsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search thread titles and contents",
	Args:  cobra.ExactArgs(1),
	RunE:  runThreadsSearch,
}

var threadsResumeCmd = &cobra.Command{
	Use:   "resume <id>",
	Short: "Resume an existing thread in an interactive chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		chatThreadIDFlag = args[0]
		return runChat(cmd, nil)
	},
}

var threadsAppendCmd = &cobra.Command{
	Use:   "append <id> <text>",
	Short: "Append a user message to a thread without running a turn",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runThreadsAppend,
}

func init() {
	threadsCmd.AddCommand(threadsListCmd, threadsShowCmd, threadsRenameCmd, threadsSearchCmd, threadsResumeCmd, threadsAppendCmd)
	rootCmd.AddCommand(threadsCmd)
}

func runThreadsList(cmd *cobra.Command, args []string) error {
	results, err := thread.List(thread.Config{})
	if err != nil {
		return err
	}
	for _, r := range results {
		title := r.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%s\t%s\t%s\n", r.ID, r.ModifiedAt.Format("2006-01-02 15:04"), title)
	}
	return nil
}

func runThreadsShow(cmd *cobra.Command, args []string) error {
	replayed, warnings, err := thread.Replay(thread.Config{}, args[0])
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Println("warning:", w)
	}
	for _, m := range replayed.Messages {
		fmt.Printf("-- %s --\n", m.Role)
		for _, b := range m.Blocks {
			if b.Type == thread.BlockText {
				fmt.Println(b.Text)
			}
		}
	}
	return nil
}

func runThreadsRename(cmd *cobra.Command, args []string) error {
	log, err := thread.Open(thread.Config{}, args[0])
	if err != nil {
		return err
	}
	return log.SetTitle(strings.Join(args[1:], " "))
}

func runThreadsSearch(cmd *cobra.Command, args []string) error {
	results, err := thread.Search(thread.Config{}, thread.SearchOptions{Query: args[0]})
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Printf("%s\t%s\t%s\n", r.ID, r.Title, r.Snippet)
	}
	return nil
}

func runThreadsAppend(cmd *cobra.Command, args []string) error {
	log, err := thread.Open(thread.Config{}, args[0])
	if err != nil {
		return err
	}
	return log.Append(thread.Event{Type: thread.EventUserMessage, Text: strings.Join(args[1:], " ")})
}
