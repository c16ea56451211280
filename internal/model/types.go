// Package model defines the request-scoped value objects that flow through
// the query agent: PodRecord, DeploymentRecord, NodeRecord, ClusterSnapshot,
// and the HTTP request/response types.
package model

import "fmt"

// PodPhase represents the lifecycle phase of a pod at collection time.
type PodPhase string

const (
	// PodPending means the pod has been accepted but not all containers are running.
	PodPending PodPhase = "Pending"
	// PodRunning means the pod is bound to a node and all containers have started.
	PodRunning PodPhase = "Running"
	// PodSucceeded means all containers terminated successfully.
	PodSucceeded PodPhase = "Succeeded"
	// PodFailed means all containers terminated and at least one failed.
	PodFailed PodPhase = "Failed"
	// PodUnknown means the pod state could not be determined.
	PodUnknown PodPhase = "Unknown"
)

// ValidPodPhases is the set of all recognized PodPhase values.
var ValidPodPhases = map[PodPhase]bool{
	PodPending:   true,
	PodRunning:   true,
	PodSucceeded: true,
	PodFailed:    true,
	PodUnknown:   true,
}

// IsValid reports whether p is a recognized pod phase.
func (p PodPhase) IsValid() bool {
	return ValidPodPhases[p]
}

// NormalizePodPhase maps an arbitrary phase string from the API server to a
// PodPhase, defaulting to PodUnknown for unrecognized values.
func NormalizePodPhase(s string) PodPhase {
	p := PodPhase(s)
	if p.IsValid() {
		return p
	}
	return PodUnknown
}

// PodRecord is a flat snapshot of one pod.
type PodRecord struct {
	// Name is the pod name.
	Name string `json:"name"`
	// Namespace is the namespace the pod runs in.
	Namespace string `json:"namespace"`
	// Status is the pod phase at collection time.
	Status PodPhase `json:"status"`
	// Node is the node the pod is scheduled on. Empty when unscheduled.
	Node string `json:"node,omitempty"`
}

// DeploymentRecord is a flat snapshot of one deployment.
type DeploymentRecord struct {
	// Name is the deployment name.
	Name string `json:"name"`
	// DesiredReplicas is spec.replicas.
	DesiredReplicas int32 `json:"desired_replicas"`
	// AvailableReplicas is status.availableReplicas. Zero when absent.
	AvailableReplicas int32 `json:"available_replicas"`
	// ReadyReplicas is status.readyReplicas. Zero when absent.
	ReadyReplicas int32 `json:"ready_replicas"`
	// Status is the type of the last reported condition, or "Unknown".
	Status string `json:"status"`
	// Selector holds the deployment's matchLabels.
	Selector map[string]string `json:"selector"`
	// Strategy is the rollout strategy type (e.g., "RollingUpdate").
	Strategy string `json:"strategy"`
}

// NodeRecord is a flat snapshot of one node.
type NodeRecord struct {
	// Name is the node name.
	Name string `json:"name"`
	// Status is the type of the last reported condition, or "Unknown".
	Status string `json:"status"`
	// Labels are the node's metadata labels.
	Labels map[string]string `json:"labels"`
	// IP is the first address reported for the node, or "Unknown".
	IP string `json:"ip"`
	// Unschedulable reports whether the node is cordoned.
	Unschedulable bool `json:"unschedulable"`
}

// CollectionFailure records a per-category collector failure. It makes the
// degrade-and-log policy explicit: an empty category slice plus a matching
// failure entry means "the call failed", not "nothing exists".
type CollectionFailure struct {
	// Category identifies what failed: "pods", "deployments", or "nodes".
	Category string `json:"category"`
	// Reason is the textual error from the failed API call.
	Reason string `json:"reason"`
}

// ClusterSnapshot is the point-in-time aggregate of pod, deployment, and node
// records used to answer a single query. Counts are derived at construction
// and always equal the length of the corresponding slice.
type ClusterSnapshot struct {
	Pods            []PodRecord        `json:"pods"`
	Deployments     []DeploymentRecord `json:"deployments"`
	Nodes           []NodeRecord       `json:"nodes"`
	PodCount        int                `json:"pod_count"`
	DeploymentCount int                `json:"deployment_count"`
	NodeCount       int                `json:"node_count"`

	// Failures lists categories that degraded to empty data. Omitted from
	// the serialized context document when all collectors succeeded.
	Failures []CollectionFailure `json:"collection_failures,omitempty"`
}

// NewClusterSnapshot builds a ClusterSnapshot from collected records,
// deriving the counts rather than trusting any caller-supplied values.
// Nil slices are normalized to empty so the JSON form is always a list.
func NewClusterSnapshot(pods []PodRecord, deployments []DeploymentRecord, nodes []NodeRecord, failures []CollectionFailure) ClusterSnapshot {
	if pods == nil {
		pods = []PodRecord{}
	}
	if deployments == nil {
		deployments = []DeploymentRecord{}
	}
	if nodes == nil {
		nodes = []NodeRecord{}
	}
	return ClusterSnapshot{
		Pods:            pods,
		Deployments:     deployments,
		Nodes:           nodes,
		PodCount:        len(pods),
		DeploymentCount: len(deployments),
		NodeCount:       len(nodes),
		Failures:        failures,
	}
}

// Validate checks the count invariants. It can only fail for snapshots built
// by hand rather than through NewClusterSnapshot.
func (s ClusterSnapshot) Validate() error {
	if s.PodCount != len(s.Pods) {
		return fmt.Errorf("snapshot: pod_count %d != len(pods) %d", s.PodCount, len(s.Pods))
	}
	if s.DeploymentCount != len(s.Deployments) {
		return fmt.Errorf("snapshot: deployment_count %d != len(deployments) %d", s.DeploymentCount, len(s.Deployments))
	}
	if s.NodeCount != len(s.Nodes) {
		return fmt.Errorf("snapshot: node_count %d != len(nodes) %d", s.NodeCount, len(s.Nodes))
	}
	return nil
}

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	// Query is the user's natural-language question. Must be non-empty.
	Query string `json:"query"`
}

// QueryResponse is the body returned for POST /query.
type QueryResponse struct {
	// Query echoes the request query verbatim.
	Query string `json:"query"`
	// Answer is the raw log text, the not-found message, or the provider's
	// generated answer, depending on how the query was routed.
	Answer string `json:"answer"`
}

// TokenUsage holds input/output token counts reported by a completion backend.
type TokenUsage struct {
	Input  int
	Output int
}

// Total returns the combined input and output token count.
func (t TokenUsage) Total() int {
	return t.Input + t.Output
}
