package erp

import "strings"

// TransientSignature pairs a message substring with the failure it marks.
// The table drives best-effort temporary classification of wire and
// transport errors; matching is ordered and case-insensitive.
type TransientSignature struct {
	Substring string
	Meaning   string
}

// DefaultTransientSignatures is the built-in signature table. It is known
// to be heuristic: some entries are genuinely transient network conditions,
// others are upstream warnings that usually clear on a later run. Callers
// who learn better can override the table via WithTransientSignatures.
var DefaultTransientSignatures = []TransientSignature{
	{"timeout expired", "server-side timeout"},
	{"timed out", "client-side timeout"},
	{"unable to parse wsdl", "WSDL endpoint momentarily unreadable"},
	{"out of memory", "remote worker exhausted"},
	{"transaction log for the database", "database capacity exhausted"},
	{"403 forbidden", "intermittent gateway rejection"},
	{"is not text/xml", "non-XML response, endpoint restarting"},
	{"server was unable to process request", "generic upstream warning"},
}

// MatchTransient reports whether the message matches a known transient
// signature and, if so, which one.
func MatchTransient(table []TransientSignature, message string) (TransientSignature, bool) {
	lower := strings.ToLower(message)
	for _, sig := range table {
		if strings.Contains(lower, sig.Substring) {
			return sig, true
		}
	}
	return TransientSignature{}, false
}

// TimeoutSignature is the one transient signature the fetch retry loop acts
// on. Other transient conditions are reported but not retried there.
const TimeoutSignature = "timeout expired"

// IsTimeout reports whether the message carries the transport timeout
// signature.
func IsTimeout(message string) bool {
	return strings.Contains(strings.ToLower(message), TimeoutSignature)
}
