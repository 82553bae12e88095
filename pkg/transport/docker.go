// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package transport

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

// DockerSpawner runs the child binary inside a short-lived container rather
// than as a local subprocess, for agents that need filesystem/network
// sandboxing. It implements Spawner with the same stdio contract as
// Process_, so Transport is indifferent to which backend produced its
// Process.
type DockerSpawner struct {
	// Image is the container image whose entrypoint/command runs
	// opts.Command/opts.Args. If empty, opts.Command is run directly as
	// the container's command against a bare image (AutoRemoveImage).
	Image string
	// AutoRemoveImage is used when Image is empty; it must already embed
	// everything opts.Command needs.
	AutoRemoveImage string
	// NetworkDisabled sandboxes the agent from outbound network access.
	NetworkDisabled bool
}

// Spawn starts a container running opts.Command and attaches to its stdio
// streams, exposing them through the same Process interface the local
// subprocess backend uses.
func (d DockerSpawner) Spawn(ctx context.Context, opts Options) (Process, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}

	image := d.Image
	if image == "" {
		image = d.AutoRemoveImage
	}
	if image == "" {
		cli.Close()
		return nil, fmt.Errorf("docker spawner: no image configured")
	}

	env := make([]string, 0, len(opts.Env))
	for k, v := range opts.Env {
		env = append(env, k+"="+v)
	}

	containerCfg := &container.Config{
		Image:        image,
		Cmd:          append([]string{opts.Command}, opts.Args...),
		Env:          env,
		WorkingDir:   opts.Dir,
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
		OpenStdin:    true,
		StdinOnce:    true,
		Tty:          false,
	}
	hostCfg := &container.HostConfig{
		NetworkMode: networkMode(d.NetworkDisabled),
		AutoRemove:  true,
	}

	created, err := cli.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, "")
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("container create: %w", err)
	}

	attach, err := cli.ContainerAttach(ctx, created.ID, container.AttachOptions{
		Stream: true,
		Stdin:  true,
		Stdout: true,
		Stderr: true,
	})
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("container attach: %w", err)
	}

	if err := cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		attach.Close()
		cli.Close()
		return nil, fmt.Errorf("container start: %w", err)
	}

	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	go demuxDockerStream(attach.Reader, stdoutW, stderrW)

	return &dockerProcess{
		cli:         cli,
		containerID: created.ID,
		stdin:       attach.Conn,
		stdout:      stdoutR,
		stderr:      stderrR,
		attach:      &attach,
	}, nil
}

func networkMode(disabled bool) container.NetworkMode {
	if disabled {
		return "none"
	}
	return "bridge"
}

// demuxDockerStream splits the multiplexed attach stream (Docker's 8-byte
// frame header per chunk, stream id 1=stdout 2=stderr) into two plain
// streams so Transport can read them like any other Process's pipes.
func demuxDockerStream(r io.Reader, stdout, stderr *io.PipeWriter) {
	defer stdout.Close()
	defer stderr.Close()

	header := make([]byte, 8)
	for {
		if _, err := io.ReadFull(r, header); err != nil {
			return
		}
		size := int(header[4])<<24 | int(header[5])<<16 | int(header[6])<<8 | int(header[7])
		if size == 0 {
			continue
		}
		buf := make([]byte, size)
		if _, err := io.ReadFull(r, buf); err != nil {
			return
		}
		switch header[0] {
		case 2:
			stderr.Write(buf)
		default:
			stdout.Write(buf)
		}
	}
}

type dockerProcess struct {
	cli         *client.Client
	containerID string
	stdin       io.WriteCloser
	stdout      io.Reader
	stderr      io.Reader
	attach      interface{ Close() }
}

func (p *dockerProcess) Stdin() io.WriteCloser { return p.stdin }
func (p *dockerProcess) Stdout() io.Reader     { return p.stdout }
func (p *dockerProcess) Stderr() io.Reader     { return p.stderr }

func (p *dockerProcess) Wait() error {
	defer p.cli.Close()
	statusCh, errCh := p.cli.ContainerWait(context.Background(), p.containerID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		return err
	case status := <-statusCh:
		if status.StatusCode != 0 {
			return fmt.Errorf("container exited with status %d", status.StatusCode)
		}
		return nil
	}
}

func (p *dockerProcess) Kill() error {
	return p.cli.ContainerKill(context.Background(), p.containerID, "SIGKILL")
}
