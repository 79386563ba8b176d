package report

import (
	"encoding/json"
	"io"

	"slurm_usage/internal/usage"
)

type JSON struct{}

func (JSON) Render(w io.Writer, r usage.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
