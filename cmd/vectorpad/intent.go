package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gwillem/vectorpad/pkg/remote"
)

type IntentCommand struct {
	Args struct {
		Intent string   `positional-arg-name:"intent" required:"yes"`
		Query  []string `positional-arg-name:"query"`
	} `positional-args:"yes"`
}

func (c *IntentCommand) Execute(args []string) error {
	cfg := mustLoadConfig()

	client, err := remote.NewClient(cfg.Server, cfg.Serial)
	if err != nil {
		return err
	}

	query := strings.Join(c.Args.Query, " ")
	err = withControl(client, requestTimeout, func(ctx context.Context) error {
		return client.UserIntent(ctx, c.Args.Intent, query)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Intent %s failed: %v\n", c.Args.Intent, err)
		os.Exit(1)
	}
	fmt.Println(successStyle.Render("Intent " + c.Args.Intent + " started on " + cfg.Serial))
	return nil
}
