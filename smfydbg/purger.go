package smfydbg

import (
	"github.com/mudesheng/dbgasm/dbg"
	logging "github.com/op/go-logging"
)

var log = logging.MustGetLogger("smfydbg")

// GraphErrorPurger finds erroneous paths and removes their nodes
type GraphErrorPurger interface {
	Name() string
	LengthThreshold() int
	SetLengthThreshold(threshold int)
	DetectErroneousNodes(g *dbg.Graph) (*dbg.PathList, error)
	RemoveErroneousNodes(g *dbg.Graph, pl *dbg.PathList) (int, error)
}

// GraphEndsEroder strips low coverage nodes from graph ends and reports the
// lengths of the dangling links it saw on the way
type GraphEndsEroder interface {
	ErodeGraphEnds(g *dbg.Graph, erosionThreshold int) ([]int, error)
}

type ContigBuilder interface {
	Build(g *dbg.Graph) ([][]byte, error)
}

type LowCoverageContigPurger interface {
	RemoveLowCoverageContigs(g *dbg.Graph, threshold float64) (int, error)
}
