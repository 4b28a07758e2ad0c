package metrics

import (
	"strings"
	"unicode"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ClientRequests counts campus client calls by endpoint template and outcome.
	ClientRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campus",
		Subsystem: "client",
		Name:      "requests_total",
		Help:      "Requests issued by the campus client.",
	}, []string{"endpoint", "outcome"})

	// RecordEvents counts record events consumed by the audit worker.
	RecordEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "campus",
		Subsystem: "audit",
		Name:      "record_events_total",
		Help:      "Attendance and marks events seen by the audit consumer.",
	}, []string{"type"})
)

func init() {
	prometheus.MustRegister(ClientRequests, RecordEvents)
}

// Endpoint collapses id segments of a request path so label cardinality stays bounded.
// "/attendance/student/42" becomes "/attendance/student/:id".
func Endpoint(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p != "" && strings.IndexFunc(p, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}
