// Dev-manager lifecycle for a local document store container
// (create/start/health-poll over docker/docker). DevConfig's
// Image/Cmd/ContainerPort/HealthPath/DataDir fields default to the
// DefraDB invocation `rpgvault serve --dev-docstore` uses, but each is
// an operator-settable knob, so any document store image that speaks
// HTTP and exposes a health endpoint works.
package docstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

const (
	DefaultImage         = "sourcenetwork/defradb:latest"
	DefaultContainerName = "rpgvault-docstore"
	DefaultPort          = "9181"
	defaultContainerPort = "9181/tcp"
	defaultDataDir       = "/data"
	defaultHealthPath    = "/health-check"

	// defaultCmd is DefraDB's own CLI invocation; any other document
	// store image supplies its own via DevConfig.Cmd.
	defaultCmdStore   = "badger"
	defaultCmdBindURL = "0.0.0.0:9181"
)

// defaultCmd returns DefraDB's start invocation, used when DevConfig.Cmd
// is empty.
func defaultCmd() []string {
	return []string{"start", "--no-keyring", "--url", defaultCmdBindURL, "--store", defaultCmdStore, "--rootdir", defaultDataDir}
}

// ContainerStatus is the current lifecycle state of the dev container.
type ContainerStatus string

const (
	StatusRunning  ContainerStatus = "running"
	StatusStopped  ContainerStatus = "stopped"
	StatusNotFound ContainerStatus = "not_found"
)

// DevManager starts, stops, and health-checks a local document store
// container for development, so `rpgvault serve` can be run without a
// separately-managed backend.
type DevManager struct {
	cli           *client.Client
	containerName string
	imageName     string
	dataPath      string
	hostPort      string
	cmd           []string
	containerPort string
	dataDir       string
	healthPath    string
}

// DevConfig configures a DevManager. Image, Cmd, ContainerPort, DataDir,
// and HealthPath all default to DefraDB's own invocation, but every one
// is independently overridable for a different document store image.
type DevConfig struct {
	ContainerName string
	Image         string
	DataPath      string
	HostPort      string

	// Cmd is the container's entrypoint argv, e.g. DefraDB's
	// `start --no-keyring --url 0.0.0.0:9181 --store badger --rootdir /data`.
	Cmd []string
	// ContainerPort is the container-side port/proto Docker exposes and
	// binds to HostPort, e.g. "9181/tcp".
	ContainerPort string
	// DataDir is the container-side path DataPath is bind-mounted to.
	DataDir string
	// HealthPath is the HTTP path polled by waitReady, relative to URL().
	HealthPath string
}

// NewDevManager builds a DevManager from the local Docker daemon.
func NewDevManager(cfg DevConfig) (*DevManager, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("devstore: docker client: %w", err)
	}
	if cfg.ContainerName == "" {
		cfg.ContainerName = DefaultContainerName
	}
	if cfg.Image == "" {
		cfg.Image = DefaultImage
	}
	if cfg.HostPort == "" {
		cfg.HostPort = DefaultPort
	}
	if cfg.ContainerPort == "" {
		cfg.ContainerPort = defaultContainerPort
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir
	}
	if cfg.HealthPath == "" {
		cfg.HealthPath = defaultHealthPath
	}
	if len(cfg.Cmd) == 0 {
		cfg.Cmd = defaultCmd()
	}
	return &DevManager{
		cli: cli, containerName: cfg.ContainerName, imageName: cfg.Image,
		dataPath: cfg.DataPath, hostPort: cfg.HostPort,
		cmd: cfg.Cmd, containerPort: cfg.ContainerPort,
		dataDir: cfg.DataDir, healthPath: cfg.HealthPath,
	}, nil
}

// Close releases the Docker client.
func (m *DevManager) Close() error { return m.cli.Close() }

// URL returns the document store's HTTP base URL, suitable for
// DOCUMENT_STORE_URL.
func (m *DevManager) URL() string { return fmt.Sprintf("http://localhost:%s", m.hostPort) }

// Start brings the container up, creating it on first use.
func (m *DevManager) Start(ctx context.Context) error {
	if _, err := m.cli.Ping(ctx); err != nil {
		return fmt.Errorf("devstore: docker not running: %w", err)
	}
	status, id, err := m.status(ctx)
	if err != nil {
		return err
	}
	switch status {
	case StatusRunning:
		return nil
	case StatusStopped:
		if err := m.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
			return fmt.Errorf("devstore: start existing container: %w", err)
		}
		return m.waitReady(ctx, 30*time.Second)
	default:
		return m.createAndStart(ctx)
	}
}

// Stop stops the container without removing it.
func (m *DevManager) Stop(ctx context.Context) error {
	status, id, err := m.status(ctx)
	if err != nil {
		return err
	}
	if status != StatusRunning {
		return nil
	}
	timeout := 10
	return m.cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &timeout})
}

// Status reports the current container state.
func (m *DevManager) Status(ctx context.Context) (ContainerStatus, error) {
	status, _, err := m.status(ctx)
	return status, err
}

func (m *DevManager) status(ctx context.Context) (ContainerStatus, string, error) {
	filterArgs := filters.NewArgs()
	filterArgs.Add("name", m.containerName)
	containers, err := m.cli.ContainerList(ctx, container.ListOptions{All: true, Filters: filterArgs})
	if err != nil {
		return "", "", fmt.Errorf("devstore: list containers: %w", err)
	}
	if len(containers) == 0 {
		return StatusNotFound, "", nil
	}
	c := containers[0]
	if c.State == "running" {
		return StatusRunning, c.ID, nil
	}
	return StatusStopped, c.ID, nil
}

func (m *DevManager) createAndStart(ctx context.Context) error {
	if err := m.ensureImage(ctx); err != nil {
		return err
	}
	port := nat.Port(m.containerPort)
	cfg := &container.Config{
		Image: m.imageName,
		Cmd:   m.cmd,
		ExposedPorts: nat.PortSet{
			port: struct{}{},
		},
	}
	hostCfg := &container.HostConfig{
		PortBindings: nat.PortMap{
			port: []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: m.hostPort}},
		},
	}
	if m.dataPath != "" {
		hostCfg.Mounts = []mount.Mount{{Type: mount.TypeBind, Source: m.dataPath, Target: m.dataDir}}
	}
	resp, err := m.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, m.containerName)
	if err != nil {
		return fmt.Errorf("devstore: create container: %w", err)
	}
	if err := m.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = m.cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return fmt.Errorf("devstore: start container: %w", err)
	}
	return m.waitReady(ctx, 30*time.Second)
}

func (m *DevManager) ensureImage(ctx context.Context) error {
	if _, err := m.cli.ImageInspect(ctx, m.imageName); err == nil {
		return nil
	}
	reader, err := m.cli.ImagePull(ctx, m.imageName, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("devstore: pull image: %w", err)
	}
	defer reader.Close()
	_, err = io.Copy(io.Discard, reader)
	return err
}

func (m *DevManager) waitReady(ctx context.Context, timeout time.Duration) error {
	httpClient := &http.Client{Timeout: 2 * time.Second}
	url := m.URL() + m.healthPath
	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return err
			}
			resp, err := httpClient.Do(req)
			if err != nil {
				return err
			}
			_ = resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("devstore: unhealthy status %d", resp.StatusCode)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(timeout.Seconds())),
		retry.Delay(time.Second),
	)
}
