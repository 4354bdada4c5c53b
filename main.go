// Command zdx is a multi-provider agentic terminal assistant: it drives
// LLM conversations with tool execution and event-sourced thread
// persistence from a terminal chat, a one-shot exec mode, and a
// Telegram bot.
package main

import "github.com/zdx-sub/zdx/cmd"

func main() {
	cmd.Execute()
}
