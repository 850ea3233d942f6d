package commands

import (
	"bufio"
	"encoding/json"
	"io"
	"os"

	"tixwatch-backend/internal/model"
	"tixwatch-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

var classifyCandidates *bool

func init() {
	classifyCandidates = classifyCmd.Flags().Bool("candidates", false, "Also print the candidate values the validator would use.")
	rootCmd.AddCommand(classifyCmd)
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

type classifyOutput struct {
	Fields     model.ClassifiedFields   `json:"fields"`
	Candidates map[model.Field][]string `json:"candidates,omitempty"`
}

var classifyCmd = &cobra.Command{
	Use:   "classify <file|->",
	Short: "Classifies the lines of a text file (or stdin) into event fields and prints them as json.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var input io.Reader = os.Stdin
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				serviceutil.Fatal("failed to open input", err)
			}
			defer f.Close()
			input = f
		}

		lines, err := readLines(input)
		if err != nil {
			serviceutil.Fatal("failed to read input", err)
		}

		c := cfg.Classifier()
		out := classifyOutput{Fields: c.Classify(lines)}
		if *classifyCandidates {
			out.Candidates = c.Candidates(lines)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			serviceutil.Fatal("failed to write output", err)
		}
	},
}
