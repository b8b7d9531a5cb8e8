package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/docker/docker/client"
)

func TestDevManagerDefaults(t *testing.T) {
	if DefaultContainerName != "rpgvault-docstore" {
		t.Errorf("unexpected default container name: %s", DefaultContainerName)
	}
	if DefaultImage != "sourcenetwork/defradb:latest" {
		t.Errorf("unexpected default image: %s", DefaultImage)
	}
	if DefaultPort != "9181" {
		t.Errorf("unexpected default port: %s", DefaultPort)
	}
}

func TestContainerStatusValues(t *testing.T) {
	statuses := []ContainerStatus{StatusRunning, StatusStopped, StatusNotFound}
	seen := make(map[ContainerStatus]bool)
	for _, s := range statuses {
		if seen[s] {
			t.Errorf("duplicate status value: %s", s)
		}
		seen[s] = true
	}
}

func TestNewDevManagerAppliesDefaults(t *testing.T) {
	mgr, err := NewDevManager(DevConfig{})
	if err != nil {
		t.Fatalf("NewDevManager() error = %v", err)
	}
	defer mgr.Close()

	if mgr.containerName != DefaultContainerName {
		t.Errorf("containerName = %q, want %q", mgr.containerName, DefaultContainerName)
	}
	if mgr.imageName != DefaultImage {
		t.Errorf("imageName = %q, want %q", mgr.imageName, DefaultImage)
	}
	if mgr.hostPort != DefaultPort {
		t.Errorf("hostPort = %q, want %q", mgr.hostPort, DefaultPort)
	}
	if got, want := mgr.URL(), "http://localhost:9181"; got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}
	if mgr.containerPort != defaultContainerPort {
		t.Errorf("containerPort = %q, want %q", mgr.containerPort, defaultContainerPort)
	}
	if mgr.dataDir != defaultDataDir {
		t.Errorf("dataDir = %q, want %q", mgr.dataDir, defaultDataDir)
	}
	if mgr.healthPath != defaultHealthPath {
		t.Errorf("healthPath = %q, want %q", mgr.healthPath, defaultHealthPath)
	}
	if len(mgr.cmd) == 0 {
		t.Error("expected a default Cmd to be applied")
	}
}

func TestNewDevManagerHonorsNonDefraDBOverrides(t *testing.T) {
	cfg := DevConfig{
		Image:         "some/other-doc-store:latest",
		Cmd:           []string{"serve", "--http-addr", "0.0.0.0:8080"},
		ContainerPort: "8080/tcp",
		DataDir:       "/var/lib/otherstore",
		HealthPath:    "/healthz",
	}
	mgr, err := NewDevManager(cfg)
	if err != nil {
		t.Fatalf("NewDevManager() error = %v", err)
	}
	defer mgr.Close()

	if mgr.imageName != cfg.Image {
		t.Errorf("imageName = %q, want %q", mgr.imageName, cfg.Image)
	}
	if len(mgr.cmd) != len(cfg.Cmd) || mgr.cmd[0] != cfg.Cmd[0] {
		t.Errorf("cmd = %v, want %v", mgr.cmd, cfg.Cmd)
	}
	if mgr.containerPort != cfg.ContainerPort {
		t.Errorf("containerPort = %q, want %q", mgr.containerPort, cfg.ContainerPort)
	}
	if mgr.dataDir != cfg.DataDir {
		t.Errorf("dataDir = %q, want %q", mgr.dataDir, cfg.DataDir)
	}
	if mgr.healthPath != cfg.HealthPath {
		t.Errorf("healthPath = %q, want %q", mgr.healthPath, cfg.HealthPath)
	}
}

// dockerAvailable reports whether a local Docker daemon answers, so the
// lifecycle test can skip cleanly in environments without one (e.g. CI
// runners without Docker-in-Docker) rather than failing.
func dockerAvailable(t *testing.T) bool {
	t.Helper()
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return false
	}
	defer cli.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = cli.Ping(ctx)
	return err == nil
}

func TestDevManagerLifecycle(t *testing.T) {
	if !dockerAvailable(t) {
		t.Skip("docker daemon not available")
	}

	ctx := context.Background()
	mgr, err := NewDevManager(DevConfig{
		ContainerName: "rpgvault-docstore-test",
		DataPath:      t.TempDir(),
		HostPort:      "19181",
	})
	if err != nil {
		t.Fatalf("NewDevManager() error = %v", err)
	}
	defer mgr.Close()

	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer mgr.Stop(context.Background())

	status, err := mgr.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status != StatusRunning {
		t.Errorf("expected status running, got %s", status)
	}

	if err := mgr.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	status, err = mgr.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status != StatusStopped {
		t.Errorf("expected status stopped, got %s", status)
	}
}
