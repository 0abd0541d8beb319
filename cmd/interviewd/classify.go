package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/interview-coach/internal/intent"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [text...]",
	Short: "Classify pre-interview input",
	Long: `Print the intent label and canned reply for each input.

With no arguments, lines are read from stdin.`,
	RunE: runClassify,
}

func runClassify(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	classify := func(text string) {
		label := intent.Classify(text)
		reply, _ := intent.Response(label)
		if label == intent.Consent {
			reply = "(interview starts)"
		}
		fmt.Fprintf(out, "%-18s %s\n", label, reply)
	}

	if len(args) > 0 {
		classify(strings.Join(args, " "))
		return nil
	}
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			classify(line)
		}
	}
	return scanner.Err()
}
