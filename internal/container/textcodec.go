// Copyright 2024 The Jazz Authors
// This file is part of Jazz.
//
// Jazz is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Jazz is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Jazz. If not, see <http://www.gnu.org/licenses/>.

package container

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jazzdata/jazz/internal/block"
	"github.com/jazzdata/jazz/internal/jtypes"
)

// WriteText renders blk as a bracketed, type-tagged text form (spec.md
// §4.3). Brackets nest one level per rank, closing and reopening at the
// boundary of each higher axis — e.g. a [2,3] i32 tensor renders as
// "[[1,2,3],[4,5,6]]". This is not meant to be a stable wire format; it
// exists for ingestion back through ParseText and for human inspection.
func WriteText(blk *block.Block) (string, error) {
	var sb strings.Builder
	idx := make([]int64, blk.Header.Rank)
	if err := writeAxis(&sb, blk, idx, 0); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func writeAxis(sb *strings.Builder, blk *block.Block, idx []int64, axis int32) error {
	dimLen := blk.Header.Dim[axis]
	if dimLen == 0 {
		dimLen = 1 // rank collapses trailing zero axes to a single implicit slot
	}
	sb.WriteByte('[')
	for i := int64(0); i < dimLen; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		idx[axis] = i
		if int(axis) == len(idx)-1 {
			if err := writeCell(sb, blk, idx); err != nil {
				return err
			}
		} else {
			if err := writeAxis(sb, blk, idx, axis+1); err != nil {
				return err
			}
		}
	}
	sb.WriteByte(']')
	return nil
}

func writeCell(sb *strings.Builder, blk *block.Block, idx []int64) error {
	off, err := blk.GetOffset(idx[:blk.Header.Rank])
	if err != nil {
		return err
	}
	i := int(off)
	switch blk.Header.CellType {
	case jtypes.CellTypeInteger, jtypes.CellTypeFactor, jtypes.CellTypeGrade:
		v, err := blk.GetInt32(i)
		if err != nil {
			return err
		}
		if v == jtypes.NAInt32 {
			sb.WriteString("NA")
		} else {
			sb.WriteString(strconv.FormatInt(int64(v), 10))
		}
	case jtypes.CellTypeLongInteger, jtypes.CellTypeTime:
		v, err := blk.GetInt64(i)
		if err != nil {
			return err
		}
		na := jtypes.NAInt64
		if blk.Header.CellType == jtypes.CellTypeTime {
			na = jtypes.NATime
		}
		if v == na {
			sb.WriteString("NA")
		} else {
			sb.WriteString(strconv.FormatInt(v, 10))
		}
	case jtypes.CellTypeByteBoolean, jtypes.CellTypeBooleanU32:
		v, ok, err := blk.GetBool(i)
		if err != nil {
			return err
		}
		if !ok {
			sb.WriteString("NA")
		} else if v {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case jtypes.CellTypeSingle:
		v, err := blk.GetFloat32(i)
		if err != nil {
			return err
		}
		if jtypes.IsNASingle(v) {
			sb.WriteString("NA")
		} else {
			sb.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
		}
	case jtypes.CellTypeDouble:
		v, err := blk.GetFloat64(i)
		if err != nil {
			return err
		}
		if jtypes.IsNADouble(v) {
			sb.WriteString("NA")
		} else {
			sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
	case jtypes.CellTypeByte:
		v, err := blk.GetByte(i)
		if err != nil {
			return err
		}
		sb.WriteString(strconv.Itoa(int(v)))
	case jtypes.CellTypeString:
		s, ok, err := blk.GetString(i)
		if err != nil {
			return err
		}
		if !ok {
			sb.WriteString("NA")
		} else {
			sb.WriteByte('"')
			sb.WriteString(escapeText(s))
			sb.WriteByte('"')
		}
	default:
		return fmt.Errorf("%w: cell type %v has no text representation", jtypes.StatusWrongType, blk.Header.CellType)
	}
	return nil
}

// escapeText applies the C escape conventions spec.md §4.3 calls for: \n,
// \t, \r, \\, \", and \xHH for anything else non-printable.
func escapeText(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		default:
			if c < 0x20 || c >= 0x7f {
				fmt.Fprintf(&sb, `\x%02x`, c)
			} else {
				sb.WriteByte(c)
			}
		}
	}
	return sb.String()
}

// unescapeText reverses escapeText, also accepting octal \OOO escapes the
// source's writer never emits but its parser historically accepted.
func unescapeText(s string) (string, error) {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			return "", fmt.Errorf("%w: dangling escape at end of string", jtypes.StatusWrongArguments)
		}
		switch s[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case '\\':
			sb.WriteByte('\\')
		case '"':
			sb.WriteByte('"')
		case 'x':
			if i+2 >= len(s) {
				return "", fmt.Errorf("%w: truncated \\x escape", jtypes.StatusWrongArguments)
			}
			v, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
			if err != nil {
				return "", fmt.Errorf("%w: bad \\x escape", jtypes.StatusWrongArguments)
			}
			sb.WriteByte(byte(v))
			i += 2
		default:
			if s[i] >= '0' && s[i] <= '7' {
				j := i
				for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
					j++
				}
				v, err := strconv.ParseUint(s[i:j], 8, 8)
				if err != nil {
					return "", fmt.Errorf("%w: bad octal escape", jtypes.StatusWrongArguments)
				}
				sb.WriteByte(byte(v))
				i = j - 1
			} else {
				return "", fmt.Errorf("%w: unknown escape \\%c", jtypes.StatusWrongArguments, s[i])
			}
		}
	}
	return sb.String(), nil
}

// ParseText is the state-machine reader side of the text codec: given a
// bracketed source and the target cell type, it infers shape from bracket
// nesting and fills the tensor using the per-type push routines spec.md
// §4.3 names (pushIntCell, pushBoolCell, pushRealCell, pushTimeCell,
// pushStringCell), implemented here as one scanner shared across types.
func ParseText(text string, cellType jtypes.CellType) (*block.Block, error) {
	p := &textParser{src: text, cellType: cellType}
	dim, err := p.scanShape()
	if err != nil {
		return nil, err
	}
	b, err := block.NewBuilder(cellType, dim, len(text))
	if err != nil {
		return nil, err
	}
	p2 := &textParser{src: text, cellType: cellType, builder: b}
	if _, err := p2.parseAxis(0, dim); err != nil {
		return nil, err
	}
	return b.Close(block.HasNAAuto)
}

type textParser struct {
	src      string
	pos      int
	cellType jtypes.CellType
	builder  *block.Builder
	cell     int
}

func (p *textParser) scanShape() ([6]int64, error) {
	var dim [6]int64
	depth := 0
	counts := make(map[int]int)
	cur := make(map[int]int)
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '[':
			depth++
			cur[depth] = 0
			p.pos++
		case ']':
			if cur[depth] > counts[depth] {
				counts[depth] = cur[depth]
			}
			depth--
			if depth >= 0 {
				cur[depth]++
			}
			p.pos++
		case ',':
			p.pos++
		case '"':
			p.pos++
			for p.pos < len(p.src) && p.src[p.pos] != '"' {
				if p.src[p.pos] == '\\' {
					p.pos++
				}
				p.pos++
			}
			p.pos++
			cur[depth]++
		default:
			start := p.pos
			for p.pos < len(p.src) && p.src[p.pos] != ',' && p.src[p.pos] != ']' {
				p.pos++
			}
			if p.pos == start {
				return dim, fmt.Errorf("%w: empty cell at offset %d", jtypes.StatusWrongArguments, start)
			}
			cur[depth]++
		}
	}
	for d := 1; d <= len(dim); d++ {
		if c, ok := counts[d]; ok {
			dim[d-1] = int64(c)
		}
	}
	return dim, nil
}

func (p *textParser) parseAxis(axis int, dim [6]int64) (int, error) {
	if p.pos >= len(p.src) || p.src[p.pos] != '[' {
		return 0, fmt.Errorf("%w: expected '[' at offset %d", jtypes.StatusWrongArguments, p.pos)
	}
	p.pos++
	i := 0
	for {
		if p.pos < len(p.src) && p.src[p.pos] == ']' {
			p.pos++
			return i, nil
		}
		if i > 0 {
			if p.pos >= len(p.src) || p.src[p.pos] != ',' {
				return 0, fmt.Errorf("%w: expected ',' at offset %d", jtypes.StatusWrongArguments, p.pos)
			}
			p.pos++
		}
		isLastAxis := axis == len(dim)-1 || dim[axis+1] == 0
		if !isLastAxis && p.pos < len(p.src) && p.src[p.pos] == '[' {
			if _, err := p.parseAxis(axis+1, dim); err != nil {
				return 0, err
			}
		} else {
			if err := p.parseCell(); err != nil {
				return 0, err
			}
		}
		i++
	}
}

func (p *textParser) parseCell() error {
	cell := p.cell
	p.cell++

	if p.pos < len(p.src) && p.src[p.pos] == '"' {
		p.pos++
		start := p.pos
		for p.pos < len(p.src) && p.src[p.pos] != '"' {
			if p.src[p.pos] == '\\' {
				p.pos++
			}
			p.pos++
		}
		raw := p.src[start:p.pos]
		p.pos++ // closing quote
		s, err := unescapeText(raw)
		if err != nil {
			return err
		}
		return p.builder.SetString(cell, s)
	}

	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != ',' && p.src[p.pos] != ']' {
		p.pos++
	}
	tok := p.src[start:p.pos]

	switch p.cellType {
	case jtypes.CellTypeInteger, jtypes.CellTypeFactor, jtypes.CellTypeGrade:
		if tok == "NA" {
			return p.builder.SetInt32(cell, jtypes.NAInt32)
		}
		v, err := strconv.ParseInt(tok, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: bad integer cell %q", jtypes.StatusWrongArguments, tok)
		}
		return p.builder.SetInt32(cell, int32(v))
	case jtypes.CellTypeLongInteger, jtypes.CellTypeTime:
		na := jtypes.NAInt64
		if p.cellType == jtypes.CellTypeTime {
			na = jtypes.NATime
		}
		if tok == "NA" {
			return p.builder.SetInt64(cell, na)
		}
		v, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: bad long cell %q", jtypes.StatusWrongArguments, tok)
		}
		return p.builder.SetInt64(cell, v)
	case jtypes.CellTypeByteBoolean, jtypes.CellTypeBooleanU32:
		switch tok {
		case "NA":
			return p.builder.SetBoolNA(cell)
		case "true", "1":
			return p.builder.SetBool(cell, true)
		case "false", "0":
			return p.builder.SetBool(cell, false)
		default:
			return fmt.Errorf("%w: bad boolean cell %q", jtypes.StatusWrongArguments, tok)
		}
	case jtypes.CellTypeSingle:
		if tok == "NA" {
			return p.builder.SetFloat32(cell, jtypes.NASingle())
		}
		v, err := strconv.ParseFloat(tok, 32)
		if err != nil {
			return fmt.Errorf("%w: bad single cell %q", jtypes.StatusWrongArguments, tok)
		}
		return p.builder.SetFloat32(cell, float32(v))
	case jtypes.CellTypeDouble:
		if tok == "NA" {
			return p.builder.SetFloat64(cell, jtypes.NADouble())
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return fmt.Errorf("%w: bad double cell %q", jtypes.StatusWrongArguments, tok)
		}
		return p.builder.SetFloat64(cell, v)
	case jtypes.CellTypeByte:
		v, err := strconv.ParseUint(tok, 10, 8)
		if err != nil {
			return fmt.Errorf("%w: bad byte cell %q", jtypes.StatusWrongArguments, tok)
		}
		return p.builder.SetByte(cell, byte(v))
	default:
		return fmt.Errorf("%w: cell type %v has no text representation", jtypes.StatusWrongType, p.cellType)
	}
}
