package pipeline

import "sort"

// Dedupe resolves duplicate nfid values down to one record per key.
//
// Records are stably sorted by data_operacao descending (the ISO date
// strings sort lexically), with missing or unparsable dates last, and the
// first record per key after the sort wins. Most-recent-by-date wins; equal
// or absent dates fall back to original row order. The output keeps the
// sorted order, so repeat runs on the same input are byte-for-byte identical.
func Dedupe(recs []Record) []Record {
	sorted := make([]Record, len(recs))
	copy(sorted, recs)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, dj := sorted[i].OperationDate(), sorted[j].OperationDate()
		if di == "" || dj == "" {
			return di != "" && dj == ""
		}
		return di > dj
	})

	seen := make(map[string]struct{}, len(sorted))
	out := make([]Record, 0, len(sorted))
	for _, rec := range sorted {
		key := rec.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, rec)
	}
	return out
}
