package fitting

import (
	"fmt"
	"strconv"
	"strings"
)

// Coefficient block widths.
const (
	IDDim    = 532
	ExpDim   = 45
	AngleDim = 3
	GammaDim = 27
	TransDim = 3

	// ViewDim is the width of one view's exp+angle+gamma+trans blocks.
	ViewDim = ExpDim + AngleDim + GammaDim + TransDim
)

// BlockKind identifies a logical coefficient block.
type BlockKind int

// Block kinds, in per-view layout order after the shared identity.
const (
	KindID BlockKind = iota
	KindExp
	KindAngle
	KindGamma
	KindTrans
)

// viewKinds is the order of the per-view blocks.
var viewKinds = [...]BlockKind{KindExp, KindAngle, KindGamma, KindTrans}

// String returns the block name used in layouts and logs.
func (k BlockKind) String() string {
	switch k {
	case KindID:
		return "id"
	case KindExp:
		return "exp"
	case KindAngle:
		return "angle"
	case KindGamma:
		return "gamma"
	case KindTrans:
		return "trans"
	default:
		return "BlockKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Width returns the number of coefficients in a block of this kind.
func (k BlockKind) Width() int {
	switch k {
	case KindID:
		return IDDim
	case KindExp:
		return ExpDim
	case KindAngle:
		return AngleDim
	case KindGamma:
		return GammaDim
	case KindTrans:
		return TransDim
	default:
		return 0
	}
}

// Block is one contiguous range of the packed coefficient vector.
type Block struct {
	Kind   BlockKind
	View   int // -1 for the shared identity block
	Offset int
	Length int
}

// Name returns "id" for the identity block and "<kind>.<view>" otherwise.
func (b Block) Name() string {
	return BlockName(b.Kind, b.View)
}

// BlockName formats the name of the block of kind for view.
func BlockName(kind BlockKind, view int) string {
	if kind == KindID {
		return kind.String()
	}
	return kind.String() + "." + strconv.Itoa(view)
}

// Layout is the packed coefficient memory layout for V views:
//
//	[0, 532)                         shared identity
//	532 + i*78 + [0, 45)             exp of view i
//	532 + i*78 + [45, 48)            angle of view i
//	532 + i*78 + [48, 75)            gamma of view i
//	532 + i*78 + [75, 78)            trans of view i
//
// It is the single source of truth for offsets: decoding, initialization
// and optimizer groups all read blocks from it.
type Layout struct {
	views  int
	width  int
	blocks []Block
	index  map[string]int
}

// NewLayout builds the layout for views ≥ 1 views.
func NewLayout(views int) (*Layout, error) {
	if views < 1 {
		return nil, fmt.Errorf("%w: layout needs at least one view, got %d", ErrNoViews, views)
	}

	l := &Layout{
		views:  views,
		blocks: make([]Block, 0, 1+views*len(viewKinds)),
		index:  make(map[string]int, 1+views*len(viewKinds)),
	}
	l.add(Block{Kind: KindID, View: -1, Offset: 0, Length: IDDim})

	cursor := IDDim
	for v := 0; v < views; v++ {
		for _, kind := range viewKinds {
			l.add(Block{Kind: kind, View: v, Offset: cursor, Length: kind.Width()})
			cursor += kind.Width()
		}
	}
	l.width = cursor

	if l.width != IDDim+views*ViewDim {
		panic(fmt.Sprintf("layout width %d, want %d", l.width, IDDim+views*ViewDim))
	}
	return l, nil
}

func (l *Layout) add(b Block) {
	l.index[b.Name()] = len(l.blocks)
	l.blocks = append(l.blocks, b)
}

// Views returns the number of views.
func (l *Layout) Views() int {
	return l.views
}

// Width returns the packed vector width, 532 + V*78.
func (l *Layout) Width() int {
	return l.width
}

// Blocks returns every block in offset order.
func (l *Layout) Blocks() []Block {
	return append([]Block(nil), l.blocks...)
}

// Lookup finds a block by name ("id", "exp.0", ...).
func (l *Layout) Lookup(name string) (Block, error) {
	i, ok := l.index[strings.TrimSpace(name)]
	if !ok {
		return Block{}, fmt.Errorf("%w: %q", ErrUnknownBlock, name)
	}
	return l.blocks[i], nil
}

// ViewBlock returns the block of kind for view. The view is ignored for KindID.
func (l *Layout) ViewBlock(kind BlockKind, view int) Block {
	if kind == KindID {
		return l.blocks[0]
	}
	return l.blocks[1+view*len(viewKinds)+int(kind-KindExp)]
}
