package logging

// DefaultMaxLogSize caps the cumulative log file.
const DefaultMaxLogSize int64 = 5_242_880

// mergeGap separates the newest session from older history.
const mergeGap = "\n\n\n\n\n"

// Merge puts the newest session in front of the cumulative log and cuts the
// result to max bytes counted from the start, so the oldest history falls off first.
func Merge(session, prior []byte, max int64) []byte {
	out := make([]byte, 0, len(session)+len(mergeGap)+len(prior))
	out = append(out, session...)
	if len(prior) > 0 {
		out = append(out, mergeGap...)
		out = append(out, prior...)
	}
	if max > 0 && int64(len(out)) > max {
		out = out[:max]
	}
	return out
}
