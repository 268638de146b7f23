package layout

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/scicomp/clusterstor-tools/internal/schema"
	"gopkg.in/yaml.v3"
)

const (
	componentPrefix = "component"
	patternMDT      = "mdt"
	extentEOF       = "EOF"
)

// Parse canonicalizes the YAML description of a default layout, either plain
// or composite, into a [schema.Layout]. Identifiers, flags, offsets and the
// formatting are not part of the canonical form.
func Parse(text []byte) (schema.Layout, error) {
	doc := make(map[string]any)

	if err := yaml.Unmarshal(stripNonYAML(text), &doc); err != nil {
		return nil, fmt.Errorf("(layout-parse) %w: %w", ErrInvalidLayout, err)
	}

	if len(doc) == 0 {
		return nil, fmt.Errorf("(layout-parse) %w: empty description", ErrInvalidLayout)
	}

	keys := componentKeys(doc)

	if len(keys) == 0 {
		c, err := parseSubLayout(doc)
		if err != nil {
			return nil, fmt.Errorf("(layout-parse) %w", err)
		}
		c.Start, c.End = 0, schema.ExtentEOF

		return schema.Layout{c}, nil
	}

	layout := make(schema.Layout, 0, len(keys))

	for _, key := range keys {
		entry, ok := doc[key].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("(layout-parse) %w: %s is not a mapping", ErrInvalidLayout, key)
		}

		c, err := parseComponent(entry)
		if err != nil {
			return nil, fmt.Errorf("(layout-parse) %s: %w", key, err)
		}

		layout = append(layout, c)
	}

	return layout, nil
}

// stripNonYAML drops lines without a key, such as the directory name that
// some tool versions print ahead of the description.
func stripNonYAML(text []byte) []byte {
	var buf bytes.Buffer

	scanner := bufio.NewScanner(bytes.NewReader(text))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, ":") {
			continue
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	return buf.Bytes()
}

// componentKeys returns the component keys of a composite layout, ordered by
// their numeric suffix.
func componentKeys(doc map[string]any) []string {
	type indexed struct {
		key string
		idx int
	}

	var found []indexed

	for k := range doc {
		suffix, ok := strings.CutPrefix(k, componentPrefix)
		if !ok {
			continue
		}
		idx, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		found = append(found, indexed{k, idx})
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].idx < found[j].idx
	})

	keys := make([]string, 0, len(found))
	for _, f := range found {
		keys = append(keys, f.key)
	}

	return keys
}

func parseComponent(entry map[string]any) (schema.Component, error) {
	sub, ok := entry["sub_layout"].(map[string]any)
	if !ok {
		return schema.Component{}, fmt.Errorf("%w: missing sub_layout", ErrInvalidLayout)
	}

	c, err := parseSubLayout(sub)
	if err != nil {
		return schema.Component{}, err
	}

	if c.Start, err = parseExtent(entry["lcme_extent.e_start"]); err != nil {
		return schema.Component{}, err
	}

	if c.End, err = parseExtent(entry["lcme_extent.e_end"]); err != nil {
		return schema.Component{}, err
	}

	return c, nil
}

func parseSubLayout(sub map[string]any) (schema.Component, error) {
	count, err := toInt64(sub["stripe_count"])
	if err != nil {
		return schema.Component{}, fmt.Errorf("%w: stripe_count: %w", ErrInvalidLayout, err)
	}

	size, err := toInt64(sub["stripe_size"])
	if err != nil || size < 0 {
		return schema.Component{}, fmt.Errorf("%w: stripe_size: %v", ErrInvalidLayout, sub["stripe_size"])
	}

	c := schema.Component{
		Kind:        schema.ComponentData,
		StripeCount: int(count),
		StripeSize:  uint64(size),
	}

	if pattern, _ := sub["pattern"].(string); pattern == patternMDT {
		c.Kind = schema.ComponentMDT
	}

	if pool, ok := sub["pool"]; ok && pool != nil {
		c.Pool = fmt.Sprint(pool)
	}

	return c, nil
}

func parseExtent(v any) (int64, error) {
	if s, ok := v.(string); ok && s == extentEOF {
		return schema.ExtentEOF, nil
	}

	n, err := toInt64(v)
	if err != nil {
		return 0, fmt.Errorf("%w: extent: %w", ErrInvalidLayout, err)
	}

	return n, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil //nolint:gosec
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}
