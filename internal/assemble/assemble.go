// Package assemble turns per-row field results into discrete transactions:
// bookend rule sets mark each transaction's first and last row, rows are
// pivoted into wide records, and fill-forward/merge rules spread values across
// a transaction's row span. Only each transaction's end row survives as its
// emitted record.
package assemble

import (
	"regexp"
	"sort"

	"github.com/boscorat/bankparse/internal/extract"
	"github.com/boscorat/bankparse/internal/rules"
)

// Record is one assembled transaction (or, without a transaction spec, one
// pivoted row). Values maps field name to its transformed value; an empty
// string means the field produced nothing at this row.
type Record struct {
	Page              int
	Row               int
	TransactionNumber int
	Values            map[string]string
}

type rowKey struct {
	page, row int
}

// Transactions assembles the extracted rows of one statement table into
// transaction records per its transaction spec.
func Transactions(results []extract.FieldResult, spec *rules.TransactionSpec) []Record {
	keys, byKey := pivot(results)
	if len(keys) == 0 {
		return nil
	}

	starts, ends := markBookends(keys, byKey, spec.Bookends)

	// number transactions by running count of start rows; rows before the
	// first start belong to no transaction and are dropped
	type spanRow struct {
		key rowKey
		rec Record
		end bool
	}
	var rows []spanRow
	number := 0
	for _, key := range keys {
		if starts[key] {
			number++
		}
		if number == 0 {
			continue
		}
		rec := Record{Page: key.page, Row: key.row, TransactionNumber: number, Values: map[string]string{}}
		for field, fr := range byKey[key] {
			if fr.Success {
				rec.Values[field] = fr.Value
			} else {
				rec.Values[field] = ""
			}
		}
		rows = append(rows, spanRow{key: key, rec: rec, end: ends[key]})
	}

	for _, field := range spec.FillForwardFields {
		last := ""
		for i := range rows {
			if v := rows[i].rec.Values[field]; v != "" {
				last = v
			} else if last != "" {
				rows[i].rec.Values[field] = last
			}
		}
	}

	if mf := spec.MergeFields; mf != nil {
		merged := map[int]map[string]string{}
		for _, field := range mf.Fields {
			for _, r := range rows {
				if v := r.rec.Values[field]; v != "" {
					if merged[r.rec.TransactionNumber] == nil {
						merged[r.rec.TransactionNumber] = map[string]string{}
					}
					cur := merged[r.rec.TransactionNumber][field]
					if cur != "" {
						cur += mf.Separator
					}
					merged[r.rec.TransactionNumber][field] = cur + v
				}
			}
			for i := range rows {
				if v := merged[rows[i].rec.TransactionNumber][field]; v != "" {
					rows[i].rec.Values[field] = v
				}
			}
		}
	}

	var out []Record
	for _, r := range rows {
		if r.end {
			out = append(out, r.rec)
		}
	}
	return out
}

// pivot groups field results into wide per-row maps, ordered by page then row.
// When a field appears twice at one position the first result wins.
func pivot(results []extract.FieldResult) ([]rowKey, map[rowKey]map[string]extract.FieldResult) {
	byKey := map[rowKey]map[string]extract.FieldResult{}
	var keys []rowKey
	for _, fr := range results {
		key := rowKey{page: fr.Page, row: fr.Row}
		if byKey[key] == nil {
			byKey[key] = map[string]extract.FieldResult{}
			keys = append(keys, key)
		}
		if _, dup := byKey[key][fr.Field]; !dup {
			byKey[key][fr.Field] = fr
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].page != keys[j].page {
			return keys[i].page < keys[j].page
		}
		return keys[i].row < keys[j].row
	})
	return keys, byKey
}

// markBookends runs each bookend rule set in declaration order and returns the
// start and end row sets. A row claimed by an earlier rule set is excluded
// from consideration by later ones, so rule sets never overlap.
func markBookends(keys []rowKey, byKey map[rowKey]map[string]extract.FieldResult, bookends []rules.Bookend) (starts, ends map[rowKey]bool) {
	starts = map[rowKey]bool{}
	ends = map[rowKey]bool{}
	for _, be := range bookends {
		excluded := map[rowKey]bool{}
		for _, fv := range []*rules.FieldValidation{be.ExtraValidationStart, be.ExtraValidationEnd} {
			if fv == nil {
				continue
			}
			re, err := regexp.Compile(fv.Pattern)
			if err != nil {
				continue
			}
			// a row whose validation field fails the pattern is excluded, and an
			// empty value never matches
			for _, key := range keys {
				if fr, ok := byKey[key][fv.Field]; ok && !re.MatchString(fr.Value) {
					excluded[key] = true
				}
			}
		}
		for _, key := range keys {
			if excluded[key] {
				continue
			}
			if !starts[key] && countSuccess(byKey[key], be.StartFields) >= be.MinNonEmptyStart {
				starts[key] = true
			}
			if !ends[key] && countSuccess(byKey[key], be.EndFields) >= be.MinNonEmptyEnd {
				ends[key] = true
			}
		}
	}
	return starts, ends
}

func countSuccess(row map[string]extract.FieldResult, fields []string) int {
	n := 0
	for _, f := range fields {
		if fr, ok := row[f]; ok && fr.Success {
			n++
		}
	}
	return n
}

// Pivot returns the wide records for a table without a transaction spec, one
// per source row in page/row order. Header sections use this to collapse
// their field results into a single logical record downstream.
func Pivot(results []extract.FieldResult) []Record {
	keys, byKey := pivot(results)
	var out []Record
	for _, key := range keys {
		rec := Record{Page: key.page, Row: key.row, Values: map[string]string{}}
		for field, fr := range byKey[key] {
			if fr.Success {
				rec.Values[field] = fr.Value
			}
		}
		out = append(out, rec)
	}
	return out
}
