// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"io"

	"github.com/containerd/errdefs"
	dockercontainer "github.com/docker/docker/api/types/container"
	dockermount "github.com/docker/docker/api/types/mount"
	dockerclient "github.com/docker/docker/client"
)

// BindMount is a read-only-capable host-to-container bind mount.
type BindMount struct {
	Source   string
	Target   string
	ReadOnly bool
}

// ContainerSpec enumerates everything needed to create a challenge
// container. It intentionally carries no behavior — Driver.CreateContainer
// is a pure translation into the engine's wire types.
type ContainerSpec struct {
	Image        string
	Mounts       []BindMount
	MemoryBytes  int64
	CPUNanocores int64
	PidsLimit    int64
	NetworkMode  string
	Labels       map[string]string
}

// ExecSpec enumerates the parameters of an exec_create call.
type ExecSpec struct {
	Cmd          []string
	AttachStdin  bool
	AttachStdout bool
	AttachStderr bool
	TTY          bool
}

// ExecStatus is the result of an exec_inspect call.
type ExecStatus struct {
	Running  bool
	ExitCode int
}

// HijackedStream is a duplex byte stream attached to a running exec.
// Reader is multiplexed per the Docker wire format unless the exec was
// created with TTY: true, in which case it is a raw byte stream.
type HijackedStream struct {
	Reader io.Reader
	Conn   io.Writer
	Close  func() error
}

// Driver encapsulates every call into the container engine and nothing
// else. It performs no retries and no policy — that is Manager's job.
type Driver interface {
	ImageExists(ctx context.Context, name string) (bool, error)
	BuildImage(ctx context.Context, tag string, buildContext io.Reader) error
	CreateContainer(ctx context.Context, spec ContainerSpec) (string, error)
	StartContainer(ctx context.Context, id string) error
	StopContainer(ctx context.Context, id string, graceSeconds int) error
	RemoveContainer(ctx context.Context, id string, force bool) error
	ExecCreate(ctx context.Context, containerID string, spec ExecSpec) (string, error)
	ExecStart(ctx context.Context, execID string, tty bool) (*HijackedStream, error)
	ExecInspect(ctx context.Context, execID string) (ExecStatus, error)
	ListContainers(ctx context.Context, labelSelector string) ([]string, error)
	Close() error
}

// dockerDriver implements Driver over the Docker Engine SDK.
type dockerDriver struct {
	cli *dockerclient.Client
}

// NewDockerDriver connects to the engine described by the process
// environment (DOCKER_HOST and friends), negotiating the API version.
func NewDockerDriver() (Driver, error) {
	cli, err := dockerclient.NewClientWithOpts(
		dockerclient.FromEnv,
		dockerclient.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, &EngineError{Op: "connect", Err: err}
	}
	return &dockerDriver{cli: cli}, nil
}

func (d *dockerDriver) Close() error {
	return d.cli.Close()
}

func (d *dockerDriver) ImageExists(ctx context.Context, name string) (bool, error) {
	_, err := d.cli.ImageInspect(ctx, name)
	if err == nil {
		return true, nil
	}
	if errdefs.IsNotFound(err) {
		return false, nil
	}
	return false, &EngineError{Op: "image_exists", Err: err}
}

func (d *dockerDriver) BuildImage(ctx context.Context, tag string, buildContext io.Reader) error {
	resp, err := d.cli.ImageBuild(ctx, buildContext, dockertypesBuildOptions(tag))
	if err != nil {
		return &BuildError{Tag: tag, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if err := drainBuildResponse(resp.Body); err != nil {
		return &BuildError{Tag: tag, Reason: err.Error()}
	}
	return nil
}

func (d *dockerDriver) CreateContainer(ctx context.Context, spec ContainerSpec) (string, error) {
	mounts := make([]dockermount.Mount, 0, len(spec.Mounts))
	for _, m := range spec.Mounts {
		mounts = append(mounts, dockermount.Mount{
			Type:     dockermount.TypeBind,
			Source:   m.Source,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
	}

	cfg := &dockercontainer.Config{
		Image:  spec.Image,
		Labels: spec.Labels,
		Tty:    false,
		Cmd:    []string{"sleep", "infinity"},
	}
	hostCfg := &dockercontainer.HostConfig{
		Mounts:      mounts,
		NetworkMode: dockercontainer.NetworkMode(spec.NetworkMode),
		Resources: dockercontainer.Resources{
			Memory:    spec.MemoryBytes,
			NanoCPUs:  spec.CPUNanocores,
			PidsLimit: &spec.PidsLimit,
		},
	}

	resp, err := d.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "")
	if err != nil {
		return "", &EngineError{Op: "create_container", Err: err}
	}
	return resp.ID, nil
}

func (d *dockerDriver) StartContainer(ctx context.Context, id string) error {
	if err := d.cli.ContainerStart(ctx, id, dockercontainer.StartOptions{}); err != nil {
		if errdefs.IsNotFound(err) {
			return &NotFoundError{Kind: "container", ID: id}
		}
		return &EngineError{Op: "start_container", Err: err}
	}
	return nil
}

func (d *dockerDriver) StopContainer(ctx context.Context, id string, graceSeconds int) error {
	timeout := graceSeconds
	if err := d.cli.ContainerStop(ctx, id, dockercontainer.StopOptions{Timeout: &timeout}); err != nil {
		if errdefs.IsNotFound(err) {
			return &NotFoundError{Kind: "container", ID: id}
		}
		return &EngineError{Op: "stop_container", Err: err}
	}
	return nil
}

func (d *dockerDriver) RemoveContainer(ctx context.Context, id string, force bool) error {
	opts := dockercontainer.RemoveOptions{Force: force, RemoveVolumes: true}
	if err := d.cli.ContainerRemove(ctx, id, opts); err != nil {
		if errdefs.IsNotFound(err) {
			return &NotFoundError{Kind: "container", ID: id}
		}
		return &EngineError{Op: "remove_container", Err: err}
	}
	return nil
}

func (d *dockerDriver) ExecCreate(ctx context.Context, containerID string, spec ExecSpec) (string, error) {
	cfg := dockercontainer.ExecOptions{
		Cmd:          spec.Cmd,
		AttachStdin:  spec.AttachStdin,
		AttachStdout: spec.AttachStdout,
		AttachStderr: spec.AttachStderr,
		Tty:          spec.TTY,
	}
	resp, err := d.cli.ContainerExecCreate(ctx, containerID, cfg)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return "", &NotFoundError{Kind: "container", ID: containerID}
		}
		return "", &EngineError{Op: "exec_create", Err: err}
	}
	return resp.ID, nil
}

func (d *dockerDriver) ExecStart(ctx context.Context, execID string, tty bool) (*HijackedStream, error) {
	resp, err := d.cli.ContainerExecAttach(ctx, execID, dockercontainer.ExecStartOptions{Tty: tty})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, &NotFoundError{Kind: "exec", ID: execID}
		}
		return nil, &EngineError{Op: "exec_start", Err: err}
	}
	return &HijackedStream{
		Reader: resp.Reader,
		Conn:   resp.Conn,
		Close:  func() error { resp.Close(); return nil },
	}, nil
}

func (d *dockerDriver) ExecInspect(ctx context.Context, execID string) (ExecStatus, error) {
	resp, err := d.cli.ContainerExecInspect(ctx, execID)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return ExecStatus{}, &NotFoundError{Kind: "exec", ID: execID}
		}
		return ExecStatus{}, &EngineError{Op: "exec_inspect", Err: err}
	}
	return ExecStatus{Running: resp.Running, ExitCode: resp.ExitCode}, nil
}

func (d *dockerDriver) ListContainers(ctx context.Context, labelSelector string) ([]string, error) {
	filterArgs := dockerFilterArgsForLabel(labelSelector)
	containers, err := d.cli.ContainerList(ctx, dockercontainer.ListOptions{All: true, Filters: filterArgs})
	if err != nil {
		return nil, &EngineError{Op: "list_containers", Err: err}
	}
	ids := make([]string, 0, len(containers))
	for _, c := range containers {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

