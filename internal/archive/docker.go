package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"maps"
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
	DefaultMinioImage         = "minio/minio:latest"
	DefaultMinioContainerName = "docextract-minio"
	ContainerNamePrefix       = "docextract-minio-"
	DefaultMinioPort          = "9000"
	DefaultMinioConsolePort   = "9001"

	// Label marks every container this package creates.
	Label = "docextract-minio"

	minioAPIPort      nat.Port = "9000/tcp"
	minioConsolePort  nat.Port = "9001/tcp"
	minioDataDir               = "/data"
	startReadyTimeout          = 30 * time.Second
	stopGraceSeconds           = 10
)

// ContainerStatus is the state of the managed MinIO container.
type ContainerStatus string

const (
	StatusRunning  ContainerStatus = "running"
	StatusStopped  ContainerStatus = "stopped"
	StatusNotFound ContainerStatus = "not_found"
	StatusStarting ContainerStatus = "starting"
)

// statusOf maps a Docker container state onto a ContainerStatus.
func statusOf(state string) ContainerStatus {
	switch state {
	case "running":
		return StatusRunning
	case "exited", "dead":
		return StatusStopped
	case "created", "restarting":
		return StatusStarting
	}
	return ContainerStatus(state)
}

// DockerConfig describes the managed MinIO container. Zero fields take the
// package defaults.
type DockerConfig struct {
	ContainerName string
	HomePath      string // names the container when ContainerName is empty
	Image         string
	DataPath      string // host directory bound to /data, optional
	HostPort      string
	ConsolePort   string
	RootUser      string
	RootPassword  string
	Labels        map[string]string // added to Label
}

func (c DockerConfig) withDefaults() DockerConfig {
	if c.ContainerName == "" {
		c.ContainerName = DefaultMinioContainerName
		if c.HomePath != "" {
			c.ContainerName = ContainerNameFor(c.HomePath)
		}
	}
	if c.Image == "" {
		c.Image = DefaultMinioImage
	}
	if c.HostPort == "" {
		c.HostPort = DefaultMinioPort
	}
	if c.ConsolePort == "" {
		c.ConsolePort = DefaultMinioConsolePort
	}
	labels := map[string]string{Label: "true"}
	maps.Copy(labels, c.Labels)
	c.Labels = labels
	return c
}

// ContainerNameFor derives a stable container name from a home directory so
// each home gets its own MinIO.
func ContainerNameFor(homePath string) string {
	sum := sha256.Sum256([]byte(homePath))
	return ContainerNamePrefix + hex.EncodeToString(sum[:4])
}

// DockerManager runs a local MinIO for the minio archive backend.
type DockerManager struct {
	cli *client.Client
	cfg DockerConfig
}

// NewDockerManager connects using the DOCKER_* environment. It does not
// contact the daemon.
func NewDockerManager(cfg DockerConfig) (*DockerManager, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &DockerManager{cli: cli, cfg: cfg.withDefaults()}, nil
}

func (m *DockerManager) ContainerName() string { return m.cfg.ContainerName }

// Endpoint is the S3 API host:port, as MinioConfig.Endpoint expects it.
func (m *DockerManager) Endpoint() string { return "localhost:" + m.cfg.HostPort }

func (m *DockerManager) URL() string { return "http://" + m.Endpoint() }

func (m *DockerManager) Close() error { return m.cli.Close() }

// Start creates the container if needed and waits until MinIO is live.
// It is a no-op when the container is already running.
func (m *DockerManager) Start(ctx context.Context) error {
	if _, err := m.cli.Ping(ctx); err != nil {
		return fmt.Errorf("docker is not running: %w", err)
	}
	status, id, err := m.lookup(ctx)
	if err != nil {
		return err
	}

	switch status {
	case StatusRunning:
		return nil
	case StatusNotFound:
		if id, err = m.create(ctx); err != nil {
			return err
		}
	case StatusStopped:
	default:
		return fmt.Errorf("container %s is %s", m.cfg.ContainerName, status)
	}

	if err := m.cli.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		if status == StatusNotFound {
			_ = m.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true})
		}
		return fmt.Errorf("failed to start container: %w", err)
	}
	return m.WaitReady(ctx, startReadyTimeout)
}

// Stop stops the container. A missing container is not an error.
func (m *DockerManager) Stop(ctx context.Context) error {
	status, id, err := m.lookup(ctx)
	if err != nil || status == StatusNotFound {
		return err
	}
	grace := stopGraceSeconds
	if err := m.cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &grace}); err != nil {
		return fmt.Errorf("failed to stop container: %w", err)
	}
	return nil
}

// Remove stops and deletes the container. Data under DataPath is kept.
func (m *DockerManager) Remove(ctx context.Context) error {
	status, id, err := m.lookup(ctx)
	if err != nil || status == StatusNotFound {
		return err
	}
	if status == StatusRunning {
		if err := m.Stop(ctx); err != nil {
			return err
		}
	}
	if err := m.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}
	return nil
}

func (m *DockerManager) Status(ctx context.Context) (ContainerStatus, error) {
	status, _, err := m.lookup(ctx)
	return status, err
}

// WaitReady polls MinIO's liveness endpoint once a second until it answers
// 200 or timeout passes.
func (m *DockerManager) WaitReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	hc := &http.Client{Timeout: 2 * time.Second}
	live := m.URL() + "/minio/health/live"
	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, live, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := hc.Do(req)
			if err != nil {
				return err
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("minio liveness returned %d", resp.StatusCode)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(time.Second),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
}

// lookup finds the container by name. The id is empty when it is missing.
func (m *DockerManager) lookup(ctx context.Context) (ContainerStatus, string, error) {
	found, err := m.cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("name", "^/"+m.cfg.ContainerName+"$")),
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to list containers: %w", err)
	}
	if len(found) == 0 {
		return StatusNotFound, "", nil
	}
	return statusOf(string(found[0].State)), found[0].ID, nil
}

func (m *DockerManager) create(ctx context.Context) (string, error) {
	if err := m.pullIfMissing(ctx); err != nil {
		return "", err
	}
	cc, hc := m.cfg.containerSpec()
	resp, err := m.cli.ContainerCreate(ctx, cc, hc, nil, nil, m.cfg.ContainerName)
	if err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}
	return resp.ID, nil
}

// containerSpec publishes both MinIO ports on loopback only.
func (c DockerConfig) containerSpec() (*container.Config, *container.HostConfig) {
	var env []string
	if c.RootUser != "" {
		env = append(env, "MINIO_ROOT_USER="+c.RootUser)
	}
	if c.RootPassword != "" {
		env = append(env, "MINIO_ROOT_PASSWORD="+c.RootPassword)
	}

	cc := &container.Config{
		Image:  c.Image,
		Cmd:    []string{"server", minioDataDir, "--console-address", ":" + minioConsolePort.Port()},
		Env:    env,
		Labels: c.Labels,
		ExposedPorts: nat.PortSet{
			minioAPIPort:     struct{}{},
			minioConsolePort: struct{}{},
		},
	}
	hc := &container.HostConfig{
		PortBindings: nat.PortMap{
			minioAPIPort:     {{HostIP: "127.0.0.1", HostPort: c.HostPort}},
			minioConsolePort: {{HostIP: "127.0.0.1", HostPort: c.ConsolePort}},
		},
	}
	if c.DataPath != "" {
		hc.Mounts = []mount.Mount{{Type: mount.TypeBind, Source: c.DataPath, Target: minioDataDir}}
	}
	return cc, hc
}

func (m *DockerManager) pullIfMissing(ctx context.Context) error {
	if _, err := m.cli.ImageInspect(ctx, m.cfg.Image); err == nil {
		return nil
	}
	progress, err := m.cli.ImagePull(ctx, m.cfg.Image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull %s: %w", m.cfg.Image, err)
	}
	defer progress.Close()
	_, err = io.Copy(io.Discard, progress)
	return err
}
