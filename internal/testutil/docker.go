package testutil

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

// RunLabel marks every container a test creates. Its value is unique per
// test so cleanup never touches another test's containers.
const RunLabel = "docextract.test-run"

// Docker is a reachable Docker daemon scoped to one test.
type Docker struct {
	Client *client.Client
	run    string
	named  []string
}

// RequireDocker connects to the daemon from the environment and removes the
// test's labeled containers at cleanup. The test is skipped in -short mode
// or when no daemon answers.
func RequireDocker(t testing.TB) *Docker {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping docker test in short mode")
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		t.Skipf("docker client unavailable: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		t.Skipf("docker is not running: %v", err)
	}

	d := &Docker{Client: cli, run: containerSafe(t.Name()) + "-" + randHex(3)}
	t.Cleanup(func() {
		d.removeAll(t)
		cli.Close()
	})
	return d
}

// Name returns a container name unique to this test run.
func (d *Docker) Name(prefix string) string {
	return "docextract-test-" + prefix + "-" + d.run
}

// Labels are applied to containers so cleanup can find them.
func (d *Docker) Labels() map[string]string {
	return map[string]string{RunLabel: d.run}
}

// Track removes the named container at cleanup. It covers containers that
// code under test creates without the run label.
func (d *Docker) Track(name string) {
	d.named = append(d.named, name)
}

func (d *Docker) removeAll(t testing.TB) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	selectors := []filters.KeyValuePair{filters.Arg("label", RunLabel+"="+d.run)}
	for _, name := range d.named {
		selectors = append(selectors, filters.Arg("name", name))
	}

	for _, sel := range selectors {
		list, err := d.Client.ContainerList(ctx, container.ListOptions{All: true, Filters: filters.NewArgs(sel)})
		if err != nil {
			t.Logf("docker cleanup: list %s=%s: %v", sel.Key, sel.Value, err)
			continue
		}
		for _, c := range list {
			err := d.Client.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true, RemoveVolumes: true})
			if err != nil {
				t.Logf("docker cleanup: remove %.12s: %v", c.ID, err)
			}
		}
	}
}

func randHex(n int) string {
	b := make([]byte, n)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// containerSafe keeps alphanumerics, maps separators to '-' and truncates to
// 30 characters.
func containerSafe(name string) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '/', r == '_', r == '-', r == ' ':
			return '-'
		}
		return -1
	}, name)
	if len(s) > 30 {
		s = s[:30]
	}
	return s
}
