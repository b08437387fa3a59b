package main

import (
	"fedplan/explain"
	"fedplan/frontend"
	"fmt"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"io"
	"strings"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Plan queries interactively.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rl, err := readline.New("fedplan > ")
		if err != nil {
			return err
		}
		defer rl.Close()

		fe := newFrontend()
		for {
			line, err := rl.Readline()
			if err != nil { // io.EOF or interrupt
				break
			}
			line = strings.TrimSpace(line)
			if line == "exit" || line == "quit" {
				break
			}
			if line == "" {
				continue
			}
			if err := Execute(rl.Stdout(), fe, strings.TrimSuffix(line, ";")); err != nil {
				fmt.Fprintln(rl.Stderr(), err)
			}
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Bye!")
		return nil
	},
}

// Execute plans one query and prints its steps.
func Execute(w io.Writer, fe *frontend.Frontend, sqlString string) error {
	plan, outcome, err := fe.Plan(sqlString)
	if err != nil {
		return err
	}
	rs, err := explain.NewExplainer().Execute(plan)
	if err != nil {
		return err
	}
	if outcome == frontend.Cached {
		rs.Message += " (cached)"
	}
	explain.Render(w, rs)
	fmt.Fprintln(w)
	return nil
}
