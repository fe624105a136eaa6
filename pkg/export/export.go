package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/ess-scheduler/core/model"
	"github.com/kilianp07/ess-scheduler/core/scheduler"
)

// Format selects the encoding of an exported plan.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// FormatFromPath derives the format from the file extension of path.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported export format: %q", filepath.Ext(path))
	}
}

// Write encodes plan to w in format f.
func Write(w io.Writer, plan *scheduler.Plan, f Format) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, plan)
	case FormatCSV:
		return WriteCSV(w, plan)
	default:
		return fmt.Errorf("unsupported export format: %q", f)
	}
}

// WriteJSON writes the plan to w in JSON format.
func WriteJSON(w io.Writer, plan *scheduler.Plan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(plan)
}

// WriteCSV writes one row per storage and hour. The soc column is the state
// of charge at the end of the hour and is empty when the plan carries no
// optimization result.
func WriteCSV(w io.Writer, plan *scheduler.Plan) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"hour", "storage", "setpoint_kw", "soc", "total_power_kw"}); err != nil {
		return err
	}
	if plan == nil {
		cw.Flush()
		return cw.Error()
	}
	kinds := make([]model.StorageKind, 0, len(plan.Setpoints))
	for k := range plan.Setpoints {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, k := range kinds {
		for i, sp := range plan.Setpoints[k] {
			soc, total := "", ""
			if r := plan.Result; r != nil {
				if t, ok := r.Storages[k]; ok && i+1 < len(t.SoC) {
					soc = formatFloat(t.SoC[i+1])
				}
				if i < len(r.TotalPower) {
					total = formatFloat(r.TotalPower[i])
				}
			}
			rec := []string{
				plan.Start.Add(time.Duration(i) * time.Hour).Format(time.RFC3339),
				string(k),
				formatFloat(sp),
				soc,
				total,
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
