// Package collector builds point-in-time cluster snapshots for the query
// agent. The three list calls (pods, deployments, nodes) run concurrently and
// are independently fault-tolerant: a failed category degrades to an empty
// slice with a recorded failure reason while the others proceed.
package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"

	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/metrics"
	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/model"
)

// statusUnknown is reported when a resource carries no conditions.
const statusUnknown = "Unknown"

// Collector produces ClusterSnapshots and fetches single-pod logs.
type Collector struct {
	client      KubeClient
	logger      *slog.Logger
	metrics     *metrics.Metrics
	callTimeout time.Duration
	tailLines   *int64
}

// Options configures a Collector.
type Options struct {
	// CallTimeout bounds each individual API call. Zero disables the bound.
	CallTimeout time.Duration

	// LogTailLines limits pod log fetches to the last N lines. Zero fetches
	// the full log.
	LogTailLines int64
}

// New creates a Collector. The metrics argument may not be nil; tests pass a
// Metrics built on a private registry.
func New(client KubeClient, m *metrics.Metrics, logger *slog.Logger, opts Options) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	var tail *int64
	if opts.LogTailLines > 0 {
		t := opts.LogTailLines
		tail = &t
	}
	return &Collector{
		client:      client,
		logger:      logger,
		metrics:     m,
		callTimeout: opts.CallTimeout,
		tailLines:   tail,
	}
}

// Snapshot collects pods, deployments, and nodes for the given namespace.
// It never returns an error: each failed category is logged, counted, and
// degraded to empty data so the caller can still answer with partial
// information. The three calls run concurrently.
func (c *Collector) Snapshot(ctx context.Context, namespace string) model.ClusterSnapshot {
	start := time.Now()

	var (
		mu       sync.Mutex
		pods     []model.PodRecord
		deploys  []model.DeploymentRecord
		nodes    []model.NodeRecord
		failures []model.CollectionFailure
	)

	fail := func(category string, err error) {
		c.logger.Error("collection failed, degrading to empty data",
			"category", category,
			"namespace", namespace,
			"error", err,
		)
		c.metrics.CollectionFailuresTotal.WithLabelValues(category).Inc()
		mu.Lock()
		failures = append(failures, model.CollectionFailure{Category: category, Reason: err.Error()})
		mu.Unlock()
	}

	// The group context is deliberately not used for the API calls: a
	// failure in one category must not cancel the others.
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		list, err := c.listPods(ctx, namespace)
		if err != nil {
			fail("pods", err)
			return nil
		}
		mu.Lock()
		pods = list
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		list, err := c.listDeployments(ctx, namespace)
		if err != nil {
			fail("deployments", err)
			return nil
		}
		mu.Lock()
		deploys = list
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		list, err := c.listNodes(ctx)
		if err != nil {
			fail("nodes", err)
			return nil
		}
		mu.Lock()
		nodes = list
		mu.Unlock()
		return nil
	})

	// The goroutines always return nil; Wait only synchronizes.
	_ = g.Wait()

	snap := model.NewClusterSnapshot(pods, deploys, nodes, failures)
	c.metrics.SnapshotDuration.Observe(time.Since(start).Seconds())
	c.logger.Info("cluster snapshot collected",
		"namespace", namespace,
		"pods", snap.PodCount,
		"deployments", snap.DeploymentCount,
		"nodes", snap.NodeCount,
		"failed_categories", len(failures),
	)
	return snap
}

// PodLogs fetches one pod's log text. On any failure it logs the error and
// returns an empty string rather than propagating.
func (c *Collector) PodLogs(ctx context.Context, namespace, name string) string {
	callCtx, cancel := c.boundCtx(ctx)
	defer cancel()

	logs, err := c.client.GetPodLogs(callCtx, namespace, name, c.tailLines)
	if err != nil {
		c.logger.Error("fetching pod logs failed",
			"namespace", namespace,
			"pod", name,
			"error", err,
		)
		c.metrics.CollectionFailuresTotal.WithLabelValues("pod_logs").Inc()
		return ""
	}
	return logs
}

func (c *Collector) boundCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.callTimeout)
}

func (c *Collector) listPods(ctx context.Context, namespace string) ([]model.PodRecord, error) {
	callCtx, cancel := c.boundCtx(ctx)
	defer cancel()

	list, err := c.client.ListPods(callCtx, namespace)
	if err != nil {
		return nil, err
	}
	records := make([]model.PodRecord, 0, len(list.Items))
	for i := range list.Items {
		records = append(records, podRecord(&list.Items[i]))
	}
	return records, nil
}

func (c *Collector) listDeployments(ctx context.Context, namespace string) ([]model.DeploymentRecord, error) {
	callCtx, cancel := c.boundCtx(ctx)
	defer cancel()

	list, err := c.client.ListDeployments(callCtx, namespace)
	if err != nil {
		return nil, err
	}
	records := make([]model.DeploymentRecord, 0, len(list.Items))
	for i := range list.Items {
		records = append(records, deploymentRecord(&list.Items[i]))
	}
	return records, nil
}

func (c *Collector) listNodes(ctx context.Context) ([]model.NodeRecord, error) {
	callCtx, cancel := c.boundCtx(ctx)
	defer cancel()

	list, err := c.client.ListNodes(callCtx)
	if err != nil {
		return nil, err
	}
	records := make([]model.NodeRecord, 0, len(list.Items))
	for i := range list.Items {
		records = append(records, nodeRecord(&list.Items[i]))
	}
	return records, nil
}

func podRecord(pod *corev1.Pod) model.PodRecord {
	return model.PodRecord{
		Name:      pod.Name,
		Namespace: pod.Namespace,
		Status:    model.NormalizePodPhase(string(pod.Status.Phase)),
		Node:      pod.Spec.NodeName,
	}
}

func deploymentRecord(d *appsv1.Deployment) model.DeploymentRecord {
	var desired int32
	if d.Spec.Replicas != nil {
		desired = *d.Spec.Replicas
	}
	selector := map[string]string{}
	if d.Spec.Selector != nil && d.Spec.Selector.MatchLabels != nil {
		selector = d.Spec.Selector.MatchLabels
	}
	strategy := statusUnknown
	if d.Spec.Strategy.Type != "" {
		strategy = string(d.Spec.Strategy.Type)
	}
	return model.DeploymentRecord{
		Name:              d.Name,
		DesiredReplicas:   desired,
		AvailableReplicas: d.Status.AvailableReplicas,
		ReadyReplicas:     d.Status.ReadyReplicas,
		Status:            lastDeploymentCondition(d.Status.Conditions),
		Selector:          selector,
		Strategy:          strategy,
	}
}

func nodeRecord(node *corev1.Node) model.NodeRecord {
	labels := node.Labels
	if labels == nil {
		labels = map[string]string{}
	}
	ip := statusUnknown
	if len(node.Status.Addresses) > 0 {
		ip = node.Status.Addresses[0].Address
	}
	return model.NodeRecord{
		Name:          node.Name,
		Status:        lastNodeCondition(node.Status.Conditions),
		Labels:        labels,
		IP:            ip,
		Unschedulable: node.Spec.Unschedulable,
	}
}

// lastDeploymentCondition reports the type of the last condition in the list,
// or "Unknown" when there are none. The API server appends newly observed
// conditions, so the last entry is treated as the most recent; condition
// ordering is not actually guaranteed by the API's data model.
func lastDeploymentCondition(conditions []appsv1.DeploymentCondition) string {
	if len(conditions) == 0 {
		return statusUnknown
	}
	return string(conditions[len(conditions)-1].Type)
}

// lastNodeCondition mirrors lastDeploymentCondition for node conditions.
func lastNodeCondition(conditions []corev1.NodeCondition) string {
	if len(conditions) == 0 {
		return statusUnknown
	}
	return string(conditions[len(conditions)-1].Type)
}
