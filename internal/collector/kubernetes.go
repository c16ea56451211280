// Package collector — kubernetes.go defines the KubeClient interface used by
// the snapshot collector to talk to the Kubernetes API server, plus the
// production clientset-backed implementation. The interface is intentionally
// narrow so tests can substitute an in-memory fake.
package collector

import (
	"context"
	"fmt"
	"io"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// KubeClient abstracts the read-only Kubernetes API operations the collector
// needs: three list calls and a single-pod log read.
type KubeClient interface {
	// ListPods lists pods in the given namespace.
	ListPods(ctx context.Context, namespace string) (*corev1.PodList, error)

	// ListDeployments lists deployments in the given namespace.
	ListDeployments(ctx context.Context, namespace string) (*appsv1.DeploymentList, error)

	// ListNodes lists all nodes. Nodes are cluster-scoped.
	ListNodes(ctx context.Context) (*corev1.NodeList, error)

	// GetPodLogs returns the log output of a pod. A nil tailLines fetches
	// the full log.
	GetPodLogs(ctx context.Context, namespace, name string, tailLines *int64) (string, error)
}

// ClientsetClient implements KubeClient against a real clientset.
type ClientsetClient struct {
	clientset kubernetes.Interface
}

// NewClientsetClient wraps a clientset in the KubeClient interface.
func NewClientsetClient(clientset kubernetes.Interface) (*ClientsetClient, error) {
	if clientset == nil {
		return nil, fmt.Errorf("collector: clientset must not be nil")
	}
	return &ClientsetClient{clientset: clientset}, nil
}

func (c *ClientsetClient) ListPods(ctx context.Context, namespace string) (*corev1.PodList, error) {
	return c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
}

func (c *ClientsetClient) ListDeployments(ctx context.Context, namespace string) (*appsv1.DeploymentList, error) {
	return c.clientset.AppsV1().Deployments(namespace).List(ctx, metav1.ListOptions{})
}

func (c *ClientsetClient) ListNodes(ctx context.Context) (*corev1.NodeList, error) {
	return c.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
}

func (c *ClientsetClient) GetPodLogs(ctx context.Context, namespace, name string, tailLines *int64) (string, error) {
	req := c.clientset.CoreV1().Pods(namespace).GetLogs(name, &corev1.PodLogOptions{
		TailLines: tailLines,
	})
	stream, err := req.Stream(ctx)
	if err != nil {
		return "", fmt.Errorf("opening log stream for pod %s/%s: %w", namespace, name, err)
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		return "", fmt.Errorf("reading log stream for pod %s/%s: %w", namespace, name, err)
	}
	return string(data), nil
}
