package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"
)

// printResult writes v as JSON (filtered by --jq when given) or, without
// --json, through table.
func printResult(c *cli.Context, v interface{}, table func(w io.Writer)) error {
	out := c.App.Writer
	if filter := c.String("jq"); filter != "" {
		return printJQ(out, v, filter)
	}
	if c.Bool("json") || table == nil {
		return outputJSON(out, v)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	table(w)
	return w.Flush()
}

func outputJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printJQ runs filter over v and prints each result on its own line.
func printJQ(out io.Writer, v interface{}, filter string) error {
	query, err := gojq.Parse(filter)
	if err != nil {
		return fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
	}

	input, err := toJQValue(v)
	if err != nil {
		return err
	}

	iter := code.Run(input)
	for {
		result, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, isErr := result.(error); isErr {
			return fmt.Errorf("jq filter %q: %w", filter, err)
		}
		b, err := gojq.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to encode jq result: %w", err)
		}
		fmt.Fprintln(out, string(b))
	}
}

// toJQValue converts v into the map/slice/float64 shape gojq operates on.
func toJQValue(v interface{}) (interface{}, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return out, nil
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
