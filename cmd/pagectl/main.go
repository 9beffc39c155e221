package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/pagewright/internal/assets"
	"github.com/dgallion1/pagewright/internal/chatter"
	"github.com/dgallion1/pagewright/internal/element"
	"github.com/dgallion1/pagewright/internal/patch"
	"github.com/dgallion1/pagewright/internal/pipeline"
	"github.com/dgallion1/pagewright/internal/scope"
)

var (
	rootCmd = &cobra.Command{
		Use:           "pagectl",
		Short:         "Run the pagewright reconciliation steps offline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	containerID string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pagectl:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&containerID, "container", "c", "", "Container id used to scope styles")

	patchCmd.Flags().StringVar(&patchDocPath, "doc", "", "Document to patch (required)")
	patchCmd.Flags().StringVar(&patchPath, "patch", "-", "File holding the search/replace blocks, - for stdin")
	patchCmd.MarkFlagRequired("doc")

	replaceCmd.Flags().StringVar(&replaceSelector, "selector", "", "CSS selector naming the target")
	replaceCmd.Flags().StringVar(&replaceMarker, "marker", "", "Marker attribute carried by the target")
	replaceCmd.Flags().StringVar(&replaceSnapshot, "snapshot", "", "File holding the target's markup as last seen")
	replaceCmd.Flags().StringVar(&replaceWith, "with", "", "File holding the replacement markup (required)")
	replaceCmd.Flags().IntVar(&replaceMax, "max-matches", 0, "Maximum elements a selector may match")
	replaceCmd.Flags().StringVar(&replaceWithin, "within", "", "Only match descendants of the element with this id")
	replaceCmd.MarkFlagRequired("with")
	replaceCmd.MarkFlagsMutuallyExclusive("selector", "marker", "snapshot")
	replaceCmd.MarkFlagsOneRequired("selector", "marker", "snapshot")

	rootCmd.AddCommand(isolateCmd)
	rootCmd.AddCommand(splitCmd)
	rootCmd.AddCommand(scopeCmd)
	rootCmd.AddCommand(patchCmd)
	rootCmd.AddCommand(replaceCmd)
}

var isolateCmd = &cobra.Command{
	Use:   "isolate [file]",
	Short: "Strip prose and fencing around a generated document",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readInput(argOr(args, "-"))
		if err != nil {
			return err
		}
		doc, ok := chatter.Isolate(raw)
		if !ok {
			return errors.New("no document root found")
		}
		_, err = io.WriteString(cmd.OutOrStdout(), doc)
		return err
	},
}

var splitCmd = &cobra.Command{
	Use:   "split [file]",
	Short: "Split a document into markup, styles and scripts, printed as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readInput(argOr(args, "-"))
		if err != nil {
			return err
		}
		b, err := assets.Decompose(doc, containerID)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning:", err)
		}
		b.CSS = scope.Scope(b.CSS, containerID)
		return printJSON(cmd.OutOrStdout(), pipeline.Page{Bundle: b, ContainerID: containerID})
	},
}

var scopeCmd = &cobra.Command{
	Use:   "scope [file]",
	Short: "Prefix every selector in a stylesheet with the container id",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if containerID == "" {
			return errors.New("--container is required")
		}
		css, err := readInput(argOr(args, "-"))
		if err != nil {
			return err
		}
		_, err = io.WriteString(cmd.OutOrStdout(), scope.Scope(css, containerID))
		return err
	},
}

var (
	patchDocPath string
	patchPath    string
)

var patchCmd = &cobra.Command{
	Use:   "patch",
	Short: "Apply search/replace blocks to a document",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readInput(patchDocPath)
		if err != nil {
			return err
		}
		text, err := readInput(patchPath)
		if err != nil {
			return err
		}
		res := patch.Apply(doc, text)
		for _, sk := range res.Skipped {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipped block %d: search text not found\n", sk.Index)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d blocks applied\n", res.Applied, res.Blocks)
		_, err = io.WriteString(cmd.OutOrStdout(), res.Document)
		return err
	},
}

var (
	replaceSelector string
	replaceMarker   string
	replaceSnapshot string
	replaceWith     string
	replaceMax      int
	replaceWithin   string
)

var replaceCmd = &cobra.Command{
	Use:   "replace [file]",
	Short: "Replace one element of a document",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readInput(argOr(args, "-"))
		if err != nil {
			return err
		}
		with, err := readInput(replaceWith)
		if err != nil {
			return err
		}

		var target element.Target
		switch {
		case replaceSelector != "":
			target = element.BySelector(replaceSelector)
			target.MaxMatches = replaceMax
		case replaceMarker != "":
			target = element.ByMarker(replaceMarker)
		default:
			snap, err := readInput(replaceSnapshot)
			if err != nil {
				return err
			}
			target = element.BySnapshot(snap)
		}

		out, err := element.Replace(doc, target.In(replaceWithin), with)
		if err != nil {
			return fmt.Errorf("replace %s: %w", target, err)
		}
		_, err = io.WriteString(cmd.OutOrStdout(), out)
		return err
	},
}

func argOr(args []string, def string) string {
	if len(args) > 0 {
		return args[0]
	}
	return def
}

// readInput reads a file, or stdin when path is "-".
func readInput(path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
