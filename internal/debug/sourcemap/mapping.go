package sourcemap

import (
	"errors"
	"fmt"
	"strings"

	gosourcemap "github.com/go-sourcemap/sourcemap"

	"github.com/dshills/turtletrace/internal/jsoncodec"
)

// Mapping maps generated positions back to authored source lines.
type Mapping interface {
	// OriginalLine returns the 1-based authored line for a 1-based
	// generated line and 0-based generated column.
	OriginalLine(genLine, genColumn int) (int, bool)
}

// MappingBuilder builds a Mapping from raw source map JSON.
type MappingBuilder func(file string, raw []byte) (Mapping, error)

// consumerMapping adapts a go-sourcemap Consumer. The Consumer falls back to
// the last mapping of an earlier generated line when the probed column comes
// before the first mapping on its own line, so lookups are guarded by the
// first mapped column of each generated line.
type consumerMapping struct {
	consumer *gosourcemap.Consumer
	sections []lineSection
}

// ParseMapping is the default MappingBuilder.
func ParseMapping(file string, raw []byte) (Mapping, error) {
	consumer, err := gosourcemap.Parse(file, raw)
	if err != nil {
		return nil, fmt.Errorf("parse source map for %s: %w", file, err)
	}
	sections, err := parseLineSections(raw)
	if err != nil {
		return nil, fmt.Errorf("parse source map for %s: %w", file, err)
	}
	return consumerMapping{consumer: consumer, sections: sections}, nil
}

func (m consumerMapping) OriginalLine(genLine, genColumn int) (int, bool) {
	if !m.mappedOnLine(genLine, genColumn) {
		return 0, false
	}
	_, _, line, _, ok := m.consumer.Source(genLine, genColumn)
	if !ok || line <= 0 {
		return 0, false
	}
	return line, true
}

// mappedOnLine reports whether a mapping exists on genLine at or before
// genColumn. Sections are selected the same way the Consumer selects them.
func (m consumerMapping) mappedOnLine(genLine, genColumn int) bool {
	for i := len(m.sections) - 1; i >= 0; i-- {
		s := m.sections[i]
		if s.line < genLine || (s.line+1 == genLine && s.column <= genColumn) {
			first, ok := s.firstColumn(genLine - s.line)
			return ok && genColumn-s.column >= first
		}
	}
	return false
}

// rawSourceMap holds the parts of a v3 source map needed for line tables.
type rawSourceMap struct {
	Mappings string `json:"mappings"`
	Sections []struct {
		Offset struct {
			Line   int `json:"line"`
			Column int `json:"column"`
		} `json:"offset"`
		Map *rawSourceMap `json:"map"`
	} `json:"sections"`
}

// lineSection is one section's generated offset and the first mapped
// column of each of its generated lines (-1 when the line has none).
type lineSection struct {
	line, column int
	first        []int
}

func (s lineSection) firstColumn(line int) (int, bool) {
	if line < 1 || line > len(s.first) || s.first[line-1] < 0 {
		return 0, false
	}
	return s.first[line-1], true
}

func parseLineSections(raw []byte) ([]lineSection, error) {
	var sm rawSourceMap
	if err := jsoncodec.Unmarshal(raw, &sm); err != nil {
		return nil, err
	}
	if len(sm.Sections) == 0 {
		first, err := firstColumns(sm.Mappings)
		if err != nil {
			return nil, err
		}
		return []lineSection{{first: first}}, nil
	}

	sections := make([]lineSection, 0, len(sm.Sections))
	for _, sec := range sm.Sections {
		if sec.Map == nil {
			continue
		}
		first, err := firstColumns(sec.Map.Mappings)
		if err != nil {
			return nil, err
		}
		sections = append(sections, lineSection{
			line:   sec.Offset.Line,
			column: sec.Offset.Column,
			first:  first,
		})
	}
	return sections, nil
}

// firstColumns decodes the generated column of the first segment on each
// line of a mappings string. Columns reset on every line, so the first
// segment's column field is absolute.
func firstColumns(mappings string) ([]int, error) {
	lines := strings.Split(mappings, ";")
	first := make([]int, len(lines))
	for i, line := range lines {
		first[i] = -1
		for _, segment := range strings.Split(line, ",") {
			if segment == "" {
				continue
			}
			col, err := decodeVLQ(segment)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			first[i] = col
			break
		}
	}
	return first, nil
}

var errBadVLQ = errors.New("invalid base64 VLQ")

const vlqDigits = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// decodeVLQ decodes the leading base64 VLQ value of s.
func decodeVLQ(s string) (int, error) {
	value, shift := 0, 0
	for i := 0; i < len(s); i++ {
		digit := strings.IndexByte(vlqDigits, s[i])
		if digit < 0 {
			return 0, errBadVLQ
		}
		value += (digit & 31) << shift
		if digit&32 == 0 {
			if value&1 != 0 {
				return -(value >> 1), nil
			}
			return value >> 1, nil
		}
		shift += 5
	}
	return 0, errBadVLQ
}
