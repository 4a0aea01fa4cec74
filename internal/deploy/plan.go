package deploy

import (
	"maps"
	"slices"
	"strconv"

	"github.com/dahlia-labs/deployctl/internal/document"
)

// run is one script invocation. item carries the list element it was fanned out
// from, if any.
type run struct {
	index int
	item  *document.Value
}

// planRuns decides how often a script runs on a network: once per element when
// its config entry is a list, once when there is no entry, not at all otherwise.
func planRuns(doc *document.Map, script string) ([]run, bool) {
	v, ok := doc.Get(script)
	if !ok {
		return []run{{index: -1}}, false
	}

	items, err := v.AsSequence()
	if err != nil {
		return nil, true
	}

	runs := make([]run, len(items))
	for i, item := range items {
		runs[i] = run{index: i, item: item}
	}
	return runs, false
}

// env layers the fields of a map element and INDEX over base.
func (r run) env(base map[string]string) map[string]string {
	env := maps.Clone(base)
	if r.index < 0 {
		return env
	}

	if fields, err := r.item.AsMap(); err == nil {
		for _, k := range fields.Keys() {
			v, _ := fields.Get(k)
			env[k] = v.Render()
		}
	}
	env[indexKey] = strconv.Itoa(r.index)

	return env
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
