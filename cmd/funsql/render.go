package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/ananis25/funsql-go"
	"github.com/ananis25/funsql-go/node"
)

var renderCmd = &cobra.Command{
	Use:   "render [query.yaml]",
	Short: "Render a query tree to SQL text",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

func parseDepth(name string) (funsql.RenderDepth, error) {
	switch name {
	case "annotate":
		return funsql.DepthAnnotate, nil
	case "resolve":
		return funsql.DepthResolve, nil
	case "link":
		return funsql.DepthLink, nil
	case "translate":
		return funsql.DepthTranslate, nil
	case "serialize", "":
		return funsql.DepthSerialize, nil
	default:
		return 0, fmt.Errorf("unknown --depth %q", name)
	}
}

func runRender(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return errors.Wrapf(err, "reading query file %q", args[0])
	}

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return errors.Wrapf(err, "parsing query file %q", args[0])
	}

	expr, err := buildExpr(doc)
	if err != nil {
		return err
	}
	root, ok := expr.(node.Tabular)
	if !ok {
		return fmt.Errorf("funsql: query document must build a tabular node, got %T", expr)
	}

	cat, err := loadCatalog(catalogPath)
	if err != nil {
		return err
	}
	if dialectName != "" {
		cat.Dialect = dialectByName(dialectName)
	}

	depth, err := parseDepth(depthName)
	if err != nil {
		return err
	}

	renderID := funsql.NewRenderID()
	result, err := funsql.Render(root, depth, cat)
	if err != nil {
		return errors.Wrapf(err, "render %s", renderID)
	}

	switch {
	case result.SQL != nil:
		fmt.Println(result.SQL.Query)
		if len(result.SQL.Variables) > 0 {
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), "-- variables:", result.SQL.Variables)
		}
	case result.Clause != nil:
		fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", result.Clause)
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", result.Box)
	}
	return nil
}
