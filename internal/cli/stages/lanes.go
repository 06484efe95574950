package stages

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dino-ds/laneqc/internal/cli/shared"
	"github.com/dino-ds/laneqc/internal/contract"
	"github.com/dino-ds/laneqc/internal/lane"
)

func newLanesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lanes [lane_id...]",
		Short: "List known lanes with their contract kind and policy",
		Long: `List the lanes the engine has rules for. Each line shows the contract
family and the merged tool-call, citation and assistant-shape policy.`,
		Example: `  laneqc lanes
  laneqc lanes lane_13_export lane_15_code`,
		GroupID:      shared.GroupQC,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			numbers, err := selectLanes(args)
			if err != nil {
				return shared.WithExitCode(shared.ExitInvalidArguments, err)
			}
			printLanes(cmd.OutOrStdout(), numbers)
			return nil
		},
	}
}

func selectLanes(args []string) ([]lane.Number, error) {
	if len(args) == 0 {
		return lane.Sorted(), nil
	}
	out := make([]lane.Number, 0, len(args))
	for _, arg := range args {
		n := lane.Parse(arg)
		if !n.Valid() {
			return nil, fmt.Errorf("unknown lane %q", arg)
		}
		out = append(out, n)
	}
	return out, nil
}

func printLanes(w io.Writer, numbers []lane.Number) {
	fmt.Fprintf(w, "%-8s %-12s %-10s %-10s %s\n", "LANE", "CONTRACT", "TOOL_CALL", "CITATIONS", "ASSISTANT")
	for _, n := range numbers {
		c := contract.For(n)
		eff := contract.Merge(c)
		fmt.Fprintf(w, "%-8s %-12s %-10s %-10s %s\n",
			n, c.Kind(),
			requirement(eff.RequireToolCall, eff.AllowToolCall),
			citationRule(eff),
			assistantShape(eff))
	}
}

func requirement(required, allowed bool) string {
	switch {
	case required:
		return "required"
	case allowed:
		return "allowed"
	}
	return "forbidden"
}

func citationRule(eff contract.Effective) string {
	if eff.CitationsExempt {
		return "exempt"
	}
	return requirement(eff.RequireCitations, eff.AllowCitations)
}

func assistantShape(eff contract.Effective) string {
	switch {
	case eff.MustBeEmpty:
		return "empty"
	case eff.MustBeCodeOnly:
		return "code_only"
	}
	return "-"
}
