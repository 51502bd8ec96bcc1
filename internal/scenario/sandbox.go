package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/danieljhkim/docpack/internal/config"
	"github.com/danieljhkim/docpack/internal/pack"
)

var (
	// ErrSandboxUnavailable is returned when the sandbox is required but
	// bwrap cannot be found.
	ErrSandboxUnavailable = errors.New("sandbox required but bwrap not found")

	// ErrSandboxProfile is returned for an unreadable or invalid profile.
	ErrSandboxProfile = errors.New("invalid sandbox profile")
)

// Profile shapes the bubblewrap sandbox. It is loaded from an optional
// YAML file named by runner.sandbox.profile.
type Profile struct {
	Namespaces  Namespaces        `yaml:"namespaces"`
	ReadOnly    []string          `yaml:"read_only"`
	Writable    []string          `yaml:"writable"`
	Environment map[string]string `yaml:"environment"`
}

// Namespaces selects which namespaces are unshared besides the network
// namespace, which follows runner.sandbox.network.
type Namespaces struct {
	PID bool `yaml:"pid"`
	IPC bool `yaml:"ipc"`
	UTS bool `yaml:"uts"`
}

// DefaultProfile mounts the host read-only and unshares pid, ipc, and uts.
func DefaultProfile() *Profile {
	return &Profile{
		Namespaces: Namespaces{PID: true, IPC: true, UTS: true},
		ReadOnly:   []string{"/"},
	}
}

// ParseProfile decodes a YAML profile over the defaults. Unknown keys are
// rejected.
func ParseProfile(data []byte) (*Profile, error) {
	profile := DefaultProfile()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(profile); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrSandboxProfile, err)
	}
	for _, path := range append(append([]string{}, profile.ReadOnly...), profile.Writable...) {
		if path == "" || path[0] != '/' {
			return nil, fmt.Errorf("%w: bind path %q must be absolute", ErrSandboxProfile, path)
		}
	}
	return profile, nil
}

// Sandbox wraps invocations in bwrap.
type Sandbox struct {
	BwrapPath string
	Profile   *Profile
	Network   bool
}

// ResolveSandbox applies the configured mode. It returns nil when scenarios
// should run unsandboxed.
func ResolveSandbox(p *pack.Pack, cfg config.SandboxConfig, lookPath func(string) (string, error)) (*Sandbox, error) {
	if cfg.Mode == config.SandboxOff {
		return nil, nil
	}

	bwrap, err := lookPath("bwrap")
	if err != nil {
		if cfg.Mode == config.SandboxRequired {
			return nil, fmt.Errorf("%w: %v", ErrSandboxUnavailable, err)
		}
		return nil, nil
	}

	profile := DefaultProfile()
	if cfg.Profile != "" {
		data, err := p.ReadFile(cfg.Profile)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSandboxProfile, err)
		}
		profile, err = ParseProfile(data)
		if err != nil {
			return nil, err
		}
	}

	return &Sandbox{BwrapPath: bwrap, Profile: profile, Network: cfg.Network}, nil
}

// Wrap rewrites inv to run inside the sandbox.
func (s *Sandbox) Wrap(inv Invocation) Invocation {
	env := make(map[string]string, len(s.Profile.Environment)+len(inv.Env))
	for k, v := range s.Profile.Environment {
		env[k] = v
	}
	for k, v := range inv.Env {
		env[k] = v
	}

	scratch := inv.Scratch
	if scratch == "" {
		scratch = inv.Dir
	}
	command := append([]string{inv.Path}, inv.Args...)
	wrapped := inv
	wrapped.Path = s.BwrapPath
	wrapped.Args = BwrapArgs(s.Profile, s.Network, scratch, inv.Dir, env, command)
	wrapped.Env = env
	return wrapped
}

// BwrapArgs builds the bubblewrap argument list. The scratch directory is
// the only writable location besides profile-declared binds and /tmp; the
// command starts in dir, which lies inside scratch.
func BwrapArgs(profile *Profile, network bool, scratch, dir string, env map[string]string, command []string) []string {
	args := []string{"--die-with-parent", "--new-session"}

	if !network {
		args = append(args, "--unshare-net")
	}
	if profile.Namespaces.PID {
		args = append(args, "--unshare-pid")
	}
	if profile.Namespaces.IPC {
		args = append(args, "--unshare-ipc")
	}
	if profile.Namespaces.UTS {
		args = append(args, "--unshare-uts")
	}

	for _, path := range profile.ReadOnly {
		args = append(args, "--ro-bind", path, path)
	}
	args = append(args, "--dev", "/dev", "--proc", "/proc", "--tmpfs", "/tmp")
	for _, path := range profile.Writable {
		args = append(args, "--bind", path, path)
	}
	args = append(args, "--bind", scratch, scratch)

	args = append(args, "--clearenv")
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--setenv", k, env[k])
	}

	args = append(args, "--chdir", dir, "--")
	return append(args, command...)
}
