package fonts

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
)

var errFontTruncated = errors.New("fonts: font data truncated")

// SubsetTrueType drops the outlines of glyphs not in keep. Glyph indices
// are preserved so Identity-H codes stay valid; glyphs after the highest
// kept index are removed. Composite glyph components are kept with their
// parents. Fonts without glyf outlines, and fonts with Arabic shaping, are
// returned unchanged.
func SubsetTrueType(data []byte, keep map[int]bool) ([]byte, error) {
	sf, err := readSfnt(data)
	if err != nil {
		return nil, err
	}
	for _, tag := range []string{"glyf", "loca", "head", "maxp", "hmtx", "hhea"} {
		if _, ok := sf.tables[tag]; !ok {
			return data, nil
		}
	}
	if sf.hasScript("arab") {
		return data, nil
	}

	head, maxp, hhea := sf.table("head"), sf.table("maxp"), sf.table("hhea")
	if len(head) < 54 || len(maxp) < 6 || len(hhea) < 36 {
		return nil, errFontTruncated
	}
	longLoca := binary.BigEndian.Uint16(head[50:52]) == 1
	numGlyphs := int(binary.BigEndian.Uint16(maxp[4:6]))

	glyphs := sf.outlines(longLoca, numGlyphs)
	closure := map[int]bool{0: true}
	for gid := range keep {
		if gid >= 0 && gid < numGlyphs {
			closure[gid] = true
		}
	}
	addComponents(closure, glyphs)

	n := 1
	for gid := range closure {
		n = max(n, gid+1)
	}

	var glyf, loca []byte
	for gid := 0; gid < n; gid++ {
		loca = binary.BigEndian.AppendUint32(loca, uint32(len(glyf)))
		if closure[gid] {
			glyf = append(glyf, glyphs[gid]...)
			for len(glyf)%4 != 0 {
				glyf = append(glyf, 0)
			}
		}
	}
	loca = binary.BigEndian.AppendUint32(loca, uint32(len(glyf)))

	hmtx, err := sf.metrics(n, int(binary.BigEndian.Uint16(hhea[34:36])))
	if err != nil {
		return nil, err
	}

	head = clone(head)
	binary.BigEndian.PutUint16(head[50:52], 1)
	maxp = clone(maxp)
	binary.BigEndian.PutUint16(maxp[4:6], uint16(n))
	hhea = clone(hhea)
	binary.BigEndian.PutUint16(hhea[34:36], uint16(n))

	out := map[string][]byte{
		"glyf": glyf, "loca": loca, "hmtx": hmtx,
		"head": head, "maxp": maxp, "hhea": hhea,
	}
	if post := sf.table("post"); len(post) >= 32 {
		// version 3 carries no glyph names
		post = clone(post[:32])
		binary.BigEndian.PutUint32(post[0:4], 0x00030000)
		out["post"] = post
	}
	for _, tag := range []string{"cmap", "name", "OS/2", "cvt ", "fpgm", "prep", "gasp", "GSUB", "GPOS", "GDEF"} {
		if t := sf.table(tag); t != nil {
			out[tag] = t
		}
	}
	return writeSfnt(out), nil
}

type sfntFile struct {
	data   []byte
	tables map[string][]byte
}

func readSfnt(data []byte) (*sfntFile, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("read font directory: %w", errFontTruncated)
	}
	f := &sfntFile{data: data, tables: make(map[string][]byte)}
	numTables := int(binary.BigEndian.Uint16(data[4:6]))
	for i := 0; i < numTables; i++ {
		rec := 12 + 16*i
		if rec+16 > len(data) {
			return nil, fmt.Errorf("read font directory: %w", errFontTruncated)
		}
		tag := string(data[rec : rec+4])
		off := int(binary.BigEndian.Uint32(data[rec+8:]))
		length := int(binary.BigEndian.Uint32(data[rec+12:]))
		if off < 0 || length < 0 || off+length > len(data) {
			return nil, fmt.Errorf("table %q: %w", tag, errFontTruncated)
		}
		f.tables[tag] = data[off : off+length]
	}
	return f, nil
}

func (f *sfntFile) table(tag string) []byte { return f.tables[tag] }

// hasScript reports whether the GSUB script list names script.
func (f *sfntFile) hasScript(script string) bool {
	gsub := f.table("GSUB")
	if len(gsub) < 10 {
		return false
	}
	list := int(binary.BigEndian.Uint16(gsub[4:6]))
	if list+2 > len(gsub) {
		return false
	}
	count := int(binary.BigEndian.Uint16(gsub[list:]))
	for i := 0; i < count; i++ {
		rec := list + 2 + 6*i
		if rec+4 > len(gsub) {
			return false
		}
		if string(gsub[rec:rec+4]) == script {
			return true
		}
	}
	return false
}

// outlines slices glyf into per-glyph records using loca.
func (f *sfntFile) outlines(longLoca bool, numGlyphs int) [][]byte {
	loca, glyf := f.table("loca"), f.table("glyf")
	offset := func(gid int) int {
		if longLoca {
			if gid*4+4 > len(loca) {
				return -1
			}
			return int(binary.BigEndian.Uint32(loca[gid*4:]))
		}
		if gid*2+2 > len(loca) {
			return -1
		}
		return int(binary.BigEndian.Uint16(loca[gid*2:])) * 2
	}
	out := make([][]byte, numGlyphs)
	for gid := range out {
		start, end := offset(gid), offset(gid+1)
		if start < 0 || end < 0 || start >= end || end > len(glyf) {
			continue
		}
		out[gid] = glyf[start:end]
	}
	return out
}

const (
	compArgWords   = 0x0001
	compScale      = 0x0008
	compMore       = 0x0020
	compXYScale    = 0x0040
	compTwoByTwo   = 0x0080
	compositeStart = 10
)

// addComponents adds the components of composite glyphs in closure until
// no new glyph appears.
func addComponents(closure map[int]bool, glyphs [][]byte) {
	queue := make([]int, 0, len(closure))
	for gid := range closure {
		queue = append(queue, gid)
	}
	for len(queue) > 0 {
		gid := queue[0]
		queue = queue[1:]
		g := glyphs[gid]
		if len(g) < compositeStart || int16(binary.BigEndian.Uint16(g)) >= 0 {
			continue
		}
		for off := compositeStart; off+4 <= len(g); {
			flags := binary.BigEndian.Uint16(g[off:])
			sub := int(binary.BigEndian.Uint16(g[off+2:]))
			if sub < len(glyphs) && !closure[sub] {
				closure[sub] = true
				queue = append(queue, sub)
			}
			off += 4
			if flags&compArgWords != 0 {
				off += 4
			} else {
				off += 2
			}
			switch {
			case flags&compScale != 0:
				off += 2
			case flags&compXYScale != 0:
				off += 4
			case flags&compTwoByTwo != 0:
				off += 8
			}
			if flags&compMore == 0 {
				break
			}
		}
	}
}

// metrics rebuilds hmtx with an explicit advance for each of the first n
// glyphs.
func (f *sfntFile) metrics(n, numHMetrics int) ([]byte, error) {
	hmtx := f.table("hmtx")
	if numHMetrics < 1 || numHMetrics*4 > len(hmtx) {
		return nil, fmt.Errorf("hmtx: %w", errFontTruncated)
	}
	lastAdvance := hmtx[(numHMetrics-1)*4 : (numHMetrics-1)*4+2]
	out := make([]byte, 0, n*4)
	for gid := 0; gid < n; gid++ {
		if gid < numHMetrics {
			out = append(out, hmtx[gid*4:gid*4+4]...)
			continue
		}
		out = append(out, lastAdvance...)
		lsb := numHMetrics*4 + (gid-numHMetrics)*2
		if lsb+2 <= len(hmtx) {
			out = append(out, hmtx[lsb:lsb+2]...)
		} else {
			out = append(out, 0, 0)
		}
	}
	return out, nil
}

func clone(b []byte) []byte { return append([]byte(nil), b...) }

// writeSfnt lays tables out in tag order on 4-byte boundaries and fixes
// the head checksum adjustment.
func writeSfnt(tables map[string][]byte) []byte {
	tags := make([]string, 0, len(tables))
	for tag := range tables {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	n := len(tags)
	selector := 0
	for 1<<(selector+1) <= n {
		selector++
	}
	searchRange := (1 << selector) * 16

	out := binary.BigEndian.AppendUint32(nil, 0x00010000)
	out = binary.BigEndian.AppendUint16(out, uint16(n))
	out = binary.BigEndian.AppendUint16(out, uint16(searchRange))
	out = binary.BigEndian.AppendUint16(out, uint16(selector))
	out = binary.BigEndian.AppendUint16(out, uint16(n*16-searchRange))

	if head, ok := tables["head"]; ok {
		binary.BigEndian.PutUint32(head[8:12], 0)
	}
	offset := 12 + 16*n
	for _, tag := range tags {
		t := tables[tag]
		out = append(out, tag...)
		out = binary.BigEndian.AppendUint32(out, checksum(t))
		out = binary.BigEndian.AppendUint32(out, uint32(offset))
		out = binary.BigEndian.AppendUint32(out, uint32(len(t)))
		offset += (len(t) + 3) &^ 3
	}
	headAt := -1
	for _, tag := range tags {
		if tag == "head" {
			headAt = len(out)
		}
		out = append(out, tables[tag]...)
		for len(out)%4 != 0 {
			out = append(out, 0)
		}
	}
	if headAt >= 0 {
		binary.BigEndian.PutUint32(out[headAt+8:], 0xB1B0AFBA-checksum(out))
	}
	return out
}

func checksum(b []byte) uint32 {
	var sum uint32
	for i := 0; i < len(b); i += 4 {
		var word [4]byte
		copy(word[:], b[i:])
		sum += binary.BigEndian.Uint32(word[:])
	}
	return sum
}
