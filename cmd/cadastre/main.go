package main

import (
	"context"

	"github.com/use-agent/cadastre/cmd/cadastre/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}
