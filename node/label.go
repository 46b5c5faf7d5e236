package node

import (
	"fmt"

	"github.com/ananis25/funsql-go/xerrors"
)

// Label returns the default alias for a node, used both for display and to
// build label maps. Matches the per-type registrations in nodedefs.py.
func Label(n Node) Symbol {
	switch v := n.(type) {
	case nil:
		return "_"
	case *Agg:
		return v.Name
	case *Fun:
		return v.Name
	case *Get:
		return v.Name
	case *As:
		return v.Name
	case *From:
		if v.Source.IsEmpty() {
			return "_"
		}
		if v.Source.Table != nil {
			return Symbol(v.Source.Table.Name)
		}
		if v.Source.Values != nil {
			return "values"
		}
		return v.Source.Name
	case *Append:
		if len(v.Args) == 0 {
			return labelOf(v.Over)
		}
		first := Label(v.Args[0])
		for _, a := range v.Args[1:] {
			if Label(a) != first {
				return "union"
			}
		}
		return first
	case *Select:
		return labelOf(v.Over)
	case *Where:
		return labelOf(v.Over)
	case *Join:
		return labelOf(v.Over)
	case *Group:
		return labelOf(v.Over)
	case *Partition:
		return labelOf(v.Over)
	case *Order:
		return labelOf(v.Over)
	case *Limit:
		return labelOf(v.Over)
	case *Define:
		return labelOf(v.Over)
	case *Iterate:
		return labelOf(v.Over)
	case *With:
		return labelOf(v.Over)
	case *WithExternal:
		return labelOf(v.Over)
	case *Bind:
		return labelOf(v.Over)
	default:
		return "_"
	}
}

func labelOf(over Tabular) Symbol {
	if over == nil {
		return "_"
	}
	return Label(over)
}

// PopulateLabelMap validates that every arg's label is unique and returns
// the name-to-index mapping, used by Select/Group/Define/Bind/With to
// resolve column references by name. Raises DuplicateLabel on collision,
// matching nodes.py's populate_label_map.
func PopulateLabelMap(args []Node) (map[Symbol]int, error) {
	labelMap := make(map[Symbol]int, len(args))
	for i, arg := range args {
		name := Label(arg)
		if _, ok := labelMap[name]; ok {
			return nil, xerrors.WithPath(
				xerrors.DuplicateLabel.New(name),
				fmt.Sprintf("%v", name),
			)
		}
		labelMap[name] = i
	}
	return labelMap, nil
}
