package fitting

import (
	"github.com/born-ml/mvfit/internal/optim"
)

// groupRow declares one logical parameter group: which block it covers and
// how its base learning rate derives from the configuration.
type groupRow struct {
	kind    BlockKind
	latent  bool // the w latent rather than a coefficient block
	perView bool
	baseLR  func(Config) float64
}

func initialLR(c Config) float64 { return c.InitialLR }
func texLR(c Config) float64 { return c.InitialLR * c.TexLRScale }
func poseLR(c Config) float64 { return c.InitialLR * c.PoseLRScale }

// groupTable is the parameter group declaration. Row order is the
// optimizer's group order; the latent group comes first and is the one
// whose rate is logged.
var groupTable = []groupRow{
	{latent: true, baseLR: texLR},
	{kind: KindID, baseLR: initialLR},
	{kind: KindExp, perView: true, baseLR: initialLR},
	{kind: KindAngle, perView: true, baseLR: poseLR},
	{kind: KindGamma, perView: true, baseLR: texLR},
	{kind: KindTrans, perView: true, baseLR: poseLR},
}

// LatentGroupName is the optimizer group name of the w latent.
const LatentGroupName = "latent_w"

// buildGroups expands groupTable for the state's view count. Per-view rows
// are emitted view-major: exp.0 angle.0 gamma.0 trans.0 exp.1 ...
func buildGroups(s *ParameterState, cfg Config) []optim.Group {
	var groups []optim.Group
	var perView []groupRow

	for _, row := range groupTable {
		switch {
		case row.latent:
			w := s.LatentW().Raw()
			groups = append(groups, optim.Group{
				Name: LatentGroupName, Param: w, Offset: 0, Length: w.NumElements(), BaseLR: row.baseLR(cfg),
			})
		case row.perView:
			perView = append(perView, row)
		default:
			groups = append(groups, coeffGroup(s, s.layout.ViewBlock(row.kind, 0), row.baseLR(cfg)))
		}
	}

	for v := 0; v < s.Views(); v++ {
		for _, row := range perView {
			groups = append(groups, coeffGroup(s, s.layout.ViewBlock(row.kind, v), row.baseLR(cfg)))
		}
	}
	return groups
}

func coeffGroup(s *ParameterState, blk Block, lr float64) optim.Group {
	return optim.Group{
		Name:   blk.Name(),
		Param:  s.Coeffs().Raw(),
		Offset: blk.Offset,
		Length: blk.Length,
		BaseLR: lr,
	}
}
