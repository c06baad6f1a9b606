package resolver

import (
	"fmt"
	"sort"

	"github.com/grafana/pdbresolve/pkg/pdb"
)

// CodeBlock is a line mapping boundary: every IL offset from Offset up to
// the next block's offset belongs to File:Line.
type CodeBlock struct {
	File     string
	Line     uint32
	Language string
	Offset   uint32
}

func (b CodeBlock) String() string {
	return fmt.Sprintf("%s:%d#IL%d", b.File, b.Line, b.Offset)
}

// codeBlockTable holds the blocks of one method sorted by offset.
type codeBlockTable []CodeBlock

func newCodeBlockTable(fn *pdb.Function) codeBlockTable {
	if len(fn.Lines) == 0 {
		return nil
	}
	n := 0
	for _, g := range fn.Lines {
		n += len(g.Lines)
	}
	t := make(codeBlockTable, 0, n)
	for _, g := range fn.Lines {
		language := pdb.LanguageNameOrDefault(g.Language)
		for _, l := range g.Lines {
			if l.Line == pdb.HiddenLine {
				continue
			}
			t = append(t, CodeBlock{
				File:     g.File,
				Line:     l.Line,
				Language: language,
				Offset:   l.Offset,
			})
		}
	}
	// groups are ordered internally but not relative to each other
	sort.SliceStable(t, func(i, j int) bool {
		return t[i].Offset < t[j].Offset
	})
	return t
}

// find returns the last block at or before offset. Offset 0 and offsets
// preceding every block select the first block.
func (t codeBlockTable) find(offset uint32) (CodeBlock, bool) {
	if len(t) == 0 {
		return CodeBlock{}, false
	}
	if offset == 0 {
		return t[0], true
	}
	idx := sort.Search(len(t), func(i int) bool {
		return t[i].Offset > offset
	})
	if idx == 0 {
		return t[0], true
	}
	return t[idx-1], true
}
