package report

import (
	"encoding/json"

	"github.com/0xmilen/solsentry/internal/model"
)

// ToJSON renders the full result: the ordered finding list plus the run
// summary, so an empty run is distinguishable from clean code.
func ToJSON(res *model.Result) ([]byte, error) {
	if res.Findings == nil {
		res.Findings = []model.Finding{}
	}
	return json.MarshalIndent(res, "", "  ")
}
