package main

import (
	"encoding/json"
	"fedplan/explain"
	"fmt"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"google.golang.org/protobuf/encoding/protojson"
)

var planFormat string

var planCmd = &cobra.Command{
	Use:   "plan <sql>",
	Short: "Print the plan of a query.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		plan, _, err := newFrontend().Plan(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		switch planFormat {
		case "table":
			rs, err := explain.NewExplainer().Execute(plan)
			if err != nil {
				return err
			}
			explain.Render(out, rs)
		case "json":
			b, err := json.MarshalIndent(plan, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
		case "proto":
			st, err := plan.ToProto()
			if err != nil {
				return err
			}
			b, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(st)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
		default:
			return errors.Errorf("unknown format %q: expected table, json or proto", planFormat)
		}
		return nil
	},
}

func init() {
	planCmd.Flags().StringVarP(&planFormat, "format", "f", "table", "output format: table, json or proto")
}
