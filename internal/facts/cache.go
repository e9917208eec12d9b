package facts

import (
	"encoding/json"

	"github.com/0xmilen/solsentry/internal/cache"
	"github.com/0xmilen/solsentry/internal/lang"
)

// Build returns the fact tables for a parsed unit, cached on disk by file
// content so repeated runs over an unchanged tree skip extraction.
func Build(tree *lang.Tree) []*Table {
	key := cache.Key("facts-v1", tree.Unit.Path, tree.Unit.Content)
	if b, ok := cache.Load(key); ok {
		var ts []*Table
		if err := json.Unmarshal(b, &ts); err == nil && len(ts) == len(tree.Contracts) {
			for _, t := range ts {
				t.Unit = tree.Unit
			}
			return ts
		}
	}
	ts := Extract(tree)
	if data, err := json.Marshal(ts); err == nil {
		_ = cache.Store(key, data)
	}
	return ts
}
