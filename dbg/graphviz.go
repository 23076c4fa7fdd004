package dbg

import (
	"io"
	"os"
	"strconv"

	"github.com/awalterschulze/gographviz"
	"github.com/pkg/errors"
)

// GraphvizDBG renders the live nodes as a dot graph, node labels carry the
// canonical k-mer and its count. Each link is drawn once from the node with
// the smaller id, labelled with the side it leaves from and '-' when the
// neighbour is read reverse complemented.
func GraphvizDBG(g *Graph, w io.Writer) error {
	if g == nil {
		return ErrNilGraph
	}
	gv := gographviz.NewGraph()
	if err := gv.SetName("G"); err != nil {
		return err
	}
	if err := gv.SetDir(true); err != nil {
		return err
	}
	if err := gv.SetStrict(false); err != nil {
		return err
	}
	nodes := g.GetNodes()
	for _, n := range nodes {
		attr := make(map[string]string)
		attr["color"] = "Green"
		attr["shape"] = "record"
		attr["label"] = "\"" + strconv.Itoa(int(n.ID)) + "|" + string(g.GetNodeSequence(n)) + "|" + strconv.Itoa(int(n.Count)) + "\""
		if err := gv.AddNode("G", strconv.Itoa(int(n.ID)), attr); err != nil {
			return err
		}
	}
	for _, n := range nodes {
		for _, s := range Sides {
			for _, e := range n.ext[s] {
				if e.ID < n.ID || (e.ID == n.ID && s == Left && e.SameOrientation) {
					continue
				}
				attr := make(map[string]string)
				attr["color"] = "Blue"
				label := s.String()
				if !e.SameOrientation {
					label += "-"
				} else {
					label += "+"
				}
				attr["label"] = "\"" + label + "\""
				if err := gv.AddEdge(strconv.Itoa(int(n.ID)), strconv.Itoa(int(e.ID)), true, attr); err != nil {
					return err
				}
			}
		}
	}
	_, err := io.WriteString(w, gv.String())
	return err
}

func WriteGraphviz(g *Graph, graphfn string) (err error) {
	gfp, err := os.Create(graphfn)
	if err != nil {
		return errors.Wrapf(err, "[WriteGraphviz] create file: %s", graphfn)
	}
	defer func() {
		if cerr := gfp.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "[WriteGraphviz] close file: %s", graphfn)
		}
	}()
	if err := GraphvizDBG(g, gfp); err != nil {
		return errors.Wrapf(err, "[WriteGraphviz] %s", graphfn)
	}
	return nil
}
