package main

import "github.com/4ngelGtz/chatbot-zen/internal/cli"

func main() {
	cli.Execute()
}
