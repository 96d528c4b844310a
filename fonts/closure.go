package fonts

import (
	"bytes"
	"fmt"

	"github.com/go-text/typesetting/font/opentype"
	"github.com/go-text/typesetting/font/opentype/tables"
)

// ComputeClosureGSUB extends glyphs with every glyph a GSUB substitution can
// produce from them, so a subset keeps ligatures and alternates working.
// Fonts without GSUB return a copy of the input set.
func ComputeClosureGSUB(fontData []byte, glyphs map[int]bool) (map[int]bool, error) {
	c := &gsubClosure{glyphs: make(map[int]bool, len(glyphs))}
	for gid := range glyphs {
		c.glyphs[gid] = true
	}

	loader, err := opentype.NewLoader(bytes.NewReader(fontData))
	if err != nil {
		return nil, fmt.Errorf("create loader: %w", err)
	}
	tag := opentype.NewTag('G', 'S', 'U', 'B')
	if !loader.HasTable(tag) {
		return c.glyphs, nil
	}
	raw, err := loader.RawTable(tag)
	if err != nil {
		return nil, fmt.Errorf("read GSUB: %w", err)
	}
	layout, _, err := tables.ParseLayout(raw)
	if err != nil {
		return nil, fmt.Errorf("parse GSUB: %w", err)
	}
	c.lookups = make([][]tables.GSUBLookup, len(layout.LookupList.Lookups))
	for i, lookup := range layout.LookupList.Lookups {
		if subs, err := lookup.AsGSUBLookups(); err == nil {
			c.lookups[i] = subs
		}
	}

	for changed := true; changed; {
		changed = false
		snapshot := c.snapshot()
		c.visiting = make(map[int]bool)
		for idx := range c.lookups {
			if c.runLookup(idx, snapshot) {
				changed = true
			}
		}
	}
	return c.glyphs, nil
}

type gsubClosure struct {
	glyphs   map[int]bool
	lookups  [][]tables.GSUBLookup
	visiting map[int]bool
}

func (c *gsubClosure) snapshot() []uint16 {
	out := make([]uint16, 0, len(c.glyphs))
	for gid := range c.glyphs {
		out = append(out, uint16(gid))
	}
	return out
}

func (c *gsubClosure) add(gid int) bool {
	if c.glyphs[gid] {
		return false
	}
	c.glyphs[gid] = true
	return true
}

func addAll[G ~uint16](c *gsubClosure, gids []G) bool {
	changed := false
	for _, g := range gids {
		if c.add(int(g)) {
			changed = true
		}
	}
	return changed
}

func hasAll[G ~uint16](c *gsubClosure, gids []G) bool {
	for _, g := range gids {
		if !c.glyphs[int(g)] {
			return false
		}
	}
	return true
}

// runLookup applies lookup idx to gids. Nested lookups reached through
// contextual rules are followed once per pass.
func (c *gsubClosure) runLookup(idx int, gids []uint16) bool {
	if idx < 0 || idx >= len(c.lookups) || c.visiting[idx] {
		return false
	}
	c.visiting[idx] = true
	defer func() { c.visiting[idx] = false }()

	changed := false
	for _, sub := range c.lookups[idx] {
		if c.apply(sub, gids) {
			changed = true
		}
	}
	return changed
}

func (c *gsubClosure) apply(sub tables.GSUBLookup, gids []uint16) bool {
	changed := false
	cov := sub.Cov()
	for _, gid := range gids {
		idx, ok := cov.Index(tables.GlyphID(gid))
		if !ok {
			continue
		}
		switch t := sub.(type) {
		case tables.SingleSubs:
			switch d := t.Data.(type) {
			case tables.SingleSubstData1:
				changed = c.add(int(gid)+int(d.DeltaGlyphID)) || changed
			case tables.SingleSubstData2:
				if idx < len(d.SubstituteGlyphIDs) {
					changed = c.add(int(d.SubstituteGlyphIDs[idx])) || changed
				}
			}
		case tables.MultipleSubs:
			if idx < len(t.Sequences) {
				changed = addAll(c, t.Sequences[idx].SubstituteGlyphIDs) || changed
			}
		case tables.AlternateSubs:
			if idx < len(t.AlternateSets) {
				changed = addAll(c, t.AlternateSets[idx].AlternateGlyphIDs) || changed
			}
		case tables.LigatureSubs:
			if idx < len(t.LigatureSets) {
				for _, lig := range t.LigatureSets[idx].Ligatures {
					if hasAll(c, lig.ComponentGlyphIDs) {
						changed = c.add(int(lig.LigatureGlyph)) || changed
					}
				}
			}
		case tables.ExtensionSubs:
			if inner := unwrapExtension(tables.Extension(t)); inner != nil {
				changed = c.apply(inner, []uint16{gid}) || changed
			}
		case tables.ContextualSubs:
			changed = c.runRecords(contextRecords(t.Data, idx), gids) || changed
		case tables.ChainedContextualSubs:
			changed = c.runRecords(chainedRecords(t.Data, idx), gids) || changed
		case tables.ReverseChainSingleSubs:
			if idx < len(t.SubstituteGlyphIDs) {
				changed = c.add(int(t.SubstituteGlyphIDs[idx])) || changed
			}
		}
	}
	return changed
}

func (c *gsubClosure) runRecords(records []tables.SequenceLookupRecord, gids []uint16) bool {
	changed := false
	for _, r := range records {
		if c.runLookup(int(r.LookupListIndex), gids) {
			changed = true
		}
	}
	return changed
}

// unwrapExtension parses the subtable an extension points at. Contextual
// extension subtables are not followed.
func unwrapExtension(ext tables.Extension) tables.GSUBLookup {
	if int(ext.ExtensionOffset) >= len(ext.RawData) {
		return nil
	}
	data := ext.RawData[ext.ExtensionOffset:]
	switch ext.ExtensionLookupType {
	case 1:
		if s, _, err := tables.ParseSingleSubs(data); err == nil {
			return s
		}
	case 2:
		if s, _, err := tables.ParseMultipleSubs(data); err == nil {
			return s
		}
	case 3:
		if s, _, err := tables.ParseAlternateSubs(data); err == nil {
			return s
		}
	case 4:
		if s, _, err := tables.ParseLigatureSubs(data); err == nil {
			return s
		}
	}
	return nil
}

func contextRecords(data tables.ContextualSubsITF, covIndex int) []tables.SequenceLookupRecord {
	var out []tables.SequenceLookupRecord
	switch t := data.(type) {
	case tables.ContextualSubs1:
		sets := tables.SequenceContextFormat1(t).SeqRuleSet
		if covIndex >= 0 && covIndex < len(sets) {
			for _, rule := range sets[covIndex].SeqRule {
				out = append(out, rule.SeqLookupRecords...)
			}
		}
	case tables.ContextualSubs2:
		for _, set := range tables.SequenceContextFormat2(t).ClassSeqRuleSet {
			for _, rule := range set.SeqRule {
				out = append(out, rule.SeqLookupRecords...)
			}
		}
	case tables.ContextualSubs3:
		out = tables.SequenceContextFormat3(t).SeqLookupRecords
	}
	return out
}

func chainedRecords(data tables.ChainedContextualSubsITF, covIndex int) []tables.SequenceLookupRecord {
	var out []tables.SequenceLookupRecord
	switch t := data.(type) {
	case tables.ChainedContextualSubs1:
		sets := tables.ChainedSequenceContextFormat1(t).ChainedSeqRuleSet
		if covIndex >= 0 && covIndex < len(sets) {
			for _, rule := range sets[covIndex].ChainedSeqRules {
				out = append(out, rule.SeqLookupRecords...)
			}
		}
	case tables.ChainedContextualSubs2:
		for _, set := range tables.ChainedSequenceContextFormat2(t).ChainedClassSeqRuleSet {
			for _, rule := range set.ChainedSeqRules {
				out = append(out, rule.SeqLookupRecords...)
			}
		}
	case tables.ChainedContextualSubs3:
		out = tables.ChainedSequenceContextFormat3(t).SeqLookupRecords
	}
	return out
}
