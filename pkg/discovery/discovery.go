// Package discovery registers the service in etcd so the surrounding
// platform (gateway, notification workers) can find it.
package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/example/storefront/pkg/config"
	clientv3 "go.etcd.io/etcd/client/v3"
)

const leaseTTLSeconds = 30

type ServiceDiscovery struct {
	client *clientv3.Client
	config *config.EtcdConfig
}

type ServiceInstance struct {
	Name string
	Host string
	Port int
}

func (i *ServiceInstance) Addr() string {
	return fmt.Sprintf("%s:%d", i.Host, i.Port)
}

func NewServiceDiscovery(cfg *config.EtcdConfig) (*ServiceDiscovery, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	return &ServiceDiscovery{
		client: cli,
		config: cfg,
	}, nil
}

func (sd *ServiceDiscovery) key(instance *ServiceInstance) string {
	return fmt.Sprintf("%s%s/%s", sd.config.Prefix, instance.Name, instance.Addr())
}

// Register announces the instance under a leased key and keeps the lease
// alive until the context is cancelled or the client closes.
func (sd *ServiceDiscovery) Register(ctx context.Context, instance *ServiceInstance) error {
	lease, err := sd.client.Grant(ctx, leaseTTLSeconds)
	if err != nil {
		return fmt.Errorf("failed to create lease: %w", err)
	}

	_, err = sd.client.Put(ctx, sd.key(instance), instance.Addr(), clientv3.WithLease(lease.ID))
	if err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}

	ch, kaerr := sd.client.KeepAlive(ctx, lease.ID)
	if kaerr != nil {
		return fmt.Errorf("failed to keep alive: %w", kaerr)
	}

	go func() {
		for range ch {
		}
	}()

	return nil
}

func (sd *ServiceDiscovery) Discover(ctx context.Context, serviceName string) ([]*ServiceInstance, error) {
	key := fmt.Sprintf("%s%s/", sd.config.Prefix, serviceName)

	resp, err := sd.client.Get(ctx, key, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to discover service: %w", err)
	}

	var instances []*ServiceInstance
	for _, kv := range resp.Kvs {
		host, portStr, err := net.SplitHostPort(string(kv.Value))
		if err != nil {
			continue
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			continue
		}
		instances = append(instances, &ServiceInstance{
			Name: serviceName,
			Host: host,
			Port: port,
		})
	}

	return instances, nil
}

func (sd *ServiceDiscovery) Deregister(ctx context.Context, instance *ServiceInstance) error {
	_, err := sd.client.Delete(ctx, sd.key(instance))
	if err != nil {
		return fmt.Errorf("failed to deregister service: %w", err)
	}
	return nil
}

func (sd *ServiceDiscovery) Close() error {
	return sd.client.Close()
}
