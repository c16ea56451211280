// Package query implements the request pipeline for the /query endpoint:
// classification of the incoming text into a log request or a general cluster
// question, optional CEL routing overrides, and orchestration of the
// collector, prompt builder, and completion provider.
package query

import (
	"regexp"
	"strings"
)

// Route identifies which pipeline a query takes.
type Route string

const (
	// RouteLog serves a single pod's raw logs without calling the
	// completion provider.
	RouteLog Route = "log"

	// RouteGeneral assembles a cluster snapshot and asks the completion
	// provider for an answer.
	RouteGeneral Route = "general"
)

// AnswerPodNameNotFound is returned verbatim when a log request names no pod.
const AnswerPodNameNotFound = "Pod name not found in the query."

// Classification is the outcome of classifying one query. Exactly one of the
// variant fields is meaningful: PodName for RouteLog, Text for RouteGeneral.
type Classification struct {
	Route Route

	// PodName is the extracted pod name for a log request. Empty means a
	// log request with no recognizable pod name.
	PodName string

	// Text is the question forwarded to the provider for a general query.
	Text string
}

// podNamePattern matches "log", an optional "for" and "the pod", then the pod
// name token. The token is one or more alphanumeric or hyphen characters,
// which covers generated pod names like web-7f8c.
var podNamePattern = regexp.MustCompile(`(?i)log\s+(?:for\s+)?(?:the\s+pod\s+)?([A-Za-z0-9-]+)`)

// Classify routes a query. Any query containing the substring "log",
// case-insensitive, is a log request; everything else is a general cluster
// question.
func Classify(text string) Classification {
	if !strings.Contains(strings.ToLower(text), "log") {
		return Classification{Route: RouteGeneral, Text: text}
	}
	return Classification{Route: RouteLog, PodName: extractPodName(text)}
}

// extractPodName pulls the pod name token out of a log request. Returns ""
// when no token follows the "log" marker.
func extractPodName(text string) string {
	m := podNamePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}
