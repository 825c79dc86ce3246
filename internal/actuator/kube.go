/*
Copyright 2026 The clusterpilot Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package actuator connects the control loops to the outside world: a
// Kubernetes-backed scaling driver and a Prometheus metrics emitter.
package actuator

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// ReplicaStatus describes the replica counts of a deployment as
// reported by the orchestration platform.
type ReplicaStatus struct {
	Desired   int32
	Ready     int32
	Updated   int32
	Available int32
}

// KubeDriver applies scaling decisions to Kubernetes deployments
// through the apps/v1 scale subresource.
type KubeDriver struct {
	client    kubernetes.Interface
	namespace string
	log       logr.Logger
}

// NewKubeDriver wraps an existing clientset. Tests pass a fake
// clientset here.
func NewKubeDriver(client kubernetes.Interface, namespace string, log logr.Logger) *KubeDriver {
	return &KubeDriver{
		client:    client,
		namespace: namespace,
		log:       log.WithName("kube-driver"),
	}
}

// NewKubeDriverForConfig builds a driver from a kubeconfig path,
// falling back to in-cluster configuration when the path is empty.
func NewKubeDriverForConfig(kubeconfig, namespace string, log logr.Logger) (*KubeDriver, error) {
	var cfg *rest.Config
	var err error
	if kubeconfig != "" {
		cfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	} else {
		cfg, err = rest.InClusterConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("loading kubernetes config: %w", err)
	}
	client, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating kubernetes client: %w", err)
	}
	return NewKubeDriver(client, namespace, log), nil
}

// ScaleDeployment resizes the named deployment to the given replica
// count.
func (d *KubeDriver) ScaleDeployment(ctx context.Context, deployment string, replicas int) error {
	deployments := d.client.AppsV1().Deployments(d.namespace)

	scale, err := deployments.GetScale(ctx, deployment, metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("reading scale of deployment %q: %w", deployment, err)
	}
	scale.Spec.Replicas = int32(replicas) //nolint:gosec

	if _, err := deployments.UpdateScale(ctx, deployment, scale, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("scaling deployment %q to %d replicas: %w", deployment, replicas, err)
	}
	d.log.Info("Deployment scaled", "deployment", deployment, "replicas", replicas)
	return nil
}

// DeploymentStatus reports the current replica counts of the named
// deployment.
func (d *KubeDriver) DeploymentStatus(ctx context.Context, deployment string) (ReplicaStatus, error) {
	dep, err := d.client.AppsV1().Deployments(d.namespace).Get(ctx, deployment, metav1.GetOptions{})
	if err != nil {
		return ReplicaStatus{}, fmt.Errorf("reading deployment %q: %w", deployment, err)
	}

	status := ReplicaStatus{
		Ready:     dep.Status.ReadyReplicas,
		Updated:   dep.Status.UpdatedReplicas,
		Available: dep.Status.AvailableReplicas,
	}
	if dep.Spec.Replicas != nil {
		status.Desired = *dep.Spec.Replicas
	}
	return status, nil
}
