package google

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"kitchenledger/internal/core"
	ports "kitchenledger/internal/sheets"
)

func headerRow() []any {
	out := make([]any, len(ports.Header))
	for i, h := range ports.Header {
		out[i] = h
	}
	return out
}

// rowOf returns the 1-based sheet row whose first cell is id, or 0.
func rowOf(ids []string, id string) int {
	id = strings.TrimSpace(id)
	if id == "" {
		return 0
	}
	for i, v := range ids {
		if v == id {
			return i + 1
		}
	}
	return 0
}

func rowRange(sheet string, row int) string {
	return fmt.Sprintf("%s!A%d:%s%d", sheet, row, lastColumn, row)
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func isHeader(cols []string) bool {
	return len(cols) > 0 && strings.EqualFold(cols[0], ports.Header[0])
}

// parseRows converts a values matrix into transactions, logging and skipping
// rows that do not parse.
func parseRows(ctx context.Context, logger *slog.Logger, values [][]any) []core.Transaction {
	out := make([]core.Transaction, 0, len(values))
	for i, raw := range values {
		cols := toStrings(raw)
		if len(cols) == 0 || cols[0] == "" || isHeader(cols) {
			continue
		}
		tx, err := ports.FromRow(cols)
		if err != nil {
			logger.WarnContext(ctx, "Skipping unreadable row", "row", i+1, "error", err)
			continue
		}
		out = append(out, tx)
	}
	return out
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
