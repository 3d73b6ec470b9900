package compose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/AleutianAI/beacon/cmd/beacon/internal/infra/process"
)

// =============================================================================
// Error Definitions
// =============================================================================

var (
	// ErrComposeNotFound is returned when the docker compose plugin is not available.
	ErrComposeNotFound = errors.New("docker compose not found")

	// ErrComposeFileMissing is returned when a required compose file doesn't exist.
	ErrComposeFileMissing = errors.New("compose file not found")

	// ErrServiceNotFound is returned when a specified service doesn't exist.
	ErrServiceNotFound = errors.New("service not found")

	// ErrCleanupPartial is returned when cleanup completes with some errors.
	ErrCleanupPartial = errors.New("cleanup completed with errors")

	// ErrInvalidConfig is returned when ComposeConfig is invalid.
	ErrInvalidConfig = errors.New("invalid compose configuration")

	// ErrInvalidEnvVar is returned when an environment variable key is invalid.
	// This prevents config injection attacks through malformed env var names.
	ErrInvalidEnvVar = errors.New("invalid environment variable")
)

// envVarKeyRegex validates environment variable key names.
// Keys must:
//   - Start with a letter or underscore
//   - Contain only alphanumeric characters and underscores
//   - Not be empty
//
// This prevents shell metacharacter injection and other config attacks.
var envVarKeyRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// =============================================================================
// Interface Definition
// =============================================================================

// Executor manages docker compose operations for the observability stack.
//
// # Description
//
// This interface abstracts all interactions with docker compose, enabling
// testable orchestration of the monitoring containers (Prometheus, Grafana,
// Loki, Tempo, Alertmanager). It handles compose file layering (base plus
// optional override), environment injection, and provides both graceful and
// forceful container management.
//
// # Security
//
//   - Sanitizes environment variable keys before injection
//   - Does not log sensitive environment values (tokens, secrets)
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Operations that modify
// container state (Up, Down, Stop, ForceCleanup) are serialized.
type Executor interface {
	// Up starts services defined in the compose configuration.
	//
	// # Description
	//
	// Executes `docker compose up -d` with optional pull flag.
	// Composes files in order: base, then override if present.
	// Injects environment variables from the provided map.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation and timeout
	//   - opts: Configuration for the up operation
	//
	// # Outputs
	//
	//   - *Result: Execution result with stdout/stderr
	//   - error: If compose command fails
	//
	// # Example
	//
	//   result, err := executor.Up(ctx, UpOptions{
	//       Services: []string{"prometheus", "grafana"},
	//       Env: map[string]string{
	//           "PROMETHEUS_RETENTION": "15d",
	//       },
	//   })
	//
	// # Limitations
	//
	//   - Does not verify service health after startup (use the health checker)
	//
	// # Assumptions
	//
	//   - Docker daemon is running and accessible
	//   - Compose files exist at configured paths
	Up(ctx context.Context, opts UpOptions) (*Result, error)

	// Down stops and removes containers defined in compose configuration.
	//
	// # Description
	//
	// Executes `docker compose down` with optional flags for orphan
	// removal and volume deletion. Attempts graceful shutdown first.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation and timeout
	//   - opts: Configuration for the down operation
	//
	// # Outputs
	//
	//   - *Result: Execution result with stdout/stderr
	//   - error: If compose command fails (may warrant ForceCleanup)
	//
	// # Limitations
	//
	//   - Volume removal is irreversible (Prometheus TSDB, Loki chunks)
	//
	// # Assumptions
	//
	//   - Containers may already be stopped (not an error)
	Down(ctx context.Context, opts DownOptions) (*Result, error)

	// Stop stops all stack containers with timeout-based escalation.
	//
	// # Description
	//
	// Stops containers using a multi-phase approach:
	//   1. Graceful stop with configurable timeout (default 10s)
	//   2. If containers remain, force stop with 0s timeout
	//
	// Prometheus and Loki flush in-memory state on SIGTERM, so the graceful
	// phase matters. The escalation ensures containers are stopped even if
	// they ignore the signal.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation
	//   - opts: Configuration for stop operation
	//
	// # Outputs
	//
	//   - *StopResult: Details of stopped containers
	//   - error: If stop cannot complete
	//
	// # Limitations
	//
	//   - Does not remove containers (use Down() or ForceCleanup() after)
	Stop(ctx context.Context, opts StopOptions) (*StopResult, error)

	// Logs streams container logs to the provided writer.
	//
	// # Description
	//
	// Executes `docker compose logs` with optional follow mode. Streams
	// logs to the provided io.Writer until context is cancelled.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation (controls stream lifetime)
	//   - opts: Configuration for log streaming
	//   - w: Writer to receive log output
	//
	// # Outputs
	//
	//   - error: If command fails to start or stream errors
	//
	// # Example
	//
	//   err := executor.Logs(ctx, LogsOptions{
	//       Follow:   true,
	//       Services: []string{"prometheus"},
	//       Tail:     100,
	//   }, os.Stdout)
	//
	// # Limitations
	//
	//   - Follow mode blocks until context cancellation
	Logs(ctx context.Context, opts LogsOptions, w io.Writer) error

	// Status returns the current state of compose services.
	//
	// # Description
	//
	// Executes `docker ps` with a project filter and parses the JSON output
	// to determine which services are running, their container health, and
	// published ports.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation and timeout
	//
	// # Outputs
	//
	//   - *Status: Current state of all services
	//   - error: If status query fails
	//
	// # Limitations
	//
	//   - Container health may lag actual service readiness; the health
	//     checker probes the HTTP endpoints directly
	Status(ctx context.Context) (*Status, error)

	// ForceCleanup removes all stack containers regardless of compose state.
	//
	// # Description
	//
	// Fallback when compose down fails. Executes in order:
	//   1. Force stop all matching containers (docker stop -t 0)
	//   2. Force remove by name filter (name=beacon-*)
	//   3. Force remove by compose project label
	//
	// Each step continues even if previous steps fail, collecting all errors.
	//
	// # Outputs
	//
	//   - *CleanupResult: Details of stopped/removed containers
	//   - error: ErrCleanupPartial if some steps failed
	//
	// # Limitations
	//
	//   - May leave orphaned volumes (use Down with RemoveVolumes for that)
	//   - Does not remove images
	ForceCleanup(ctx context.Context) (*CleanupResult, error)

	// GetComposeFiles returns the ordered list of compose files in use.
	//
	// # Description
	//
	// Returns the compose files based on current configuration. Useful for
	// debugging and displaying configuration to users.
	//
	// # Outputs
	//
	//   - []string: Ordered list of compose file paths
	//
	// # Limitations
	//
	//   - Does not validate file content/syntax
	GetComposeFiles() []string
}

// =============================================================================
// Supporting Types
// =============================================================================

// Config provides configuration for compose operations.
type Config struct {
	// StackDir is the directory containing compose files.
	// All compose file paths are relative to this directory.
	StackDir string

	// ProjectName is the compose project name.
	// Default: "beacon"
	ProjectName string

	// BaseFile is the primary compose file name.
	// Default: "docker-compose.yml"
	BaseFile string

	// OverrideFile is the user override file name.
	// Optional, only used if file exists.
	// Default: "docker-compose.override.yml"
	OverrideFile string

	// ContainerNamePrefix is the prefix for container names.
	// Used for filtering in ForceCleanup.
	// Default: "beacon-"
	ContainerNamePrefix string

	// DefaultTimeout is the default timeout for compose operations.
	// Default: 5 minutes
	DefaultTimeout time.Duration
}

// UpOptions configures the Up operation.
type UpOptions struct {
	// Pull fetches newer images before starting.
	// Maps to: --pull always
	Pull bool

	// Services limits which services to start.
	// Empty means all services.
	Services []string

	// Env contains environment variables to inject.
	// These are passed to compose and available to all services.
	Env map[string]string

	// RemoveOrphans removes containers for services not defined.
	// Default: false
	RemoveOrphans bool

	// Timeout overrides the default operation timeout.
	// Zero means use DefaultTimeout from config.
	Timeout time.Duration
}

// DownOptions configures the Down operation.
type DownOptions struct {
	// RemoveOrphans removes containers for services not in compose file.
	// Maps to: --remove-orphans flag
	RemoveOrphans bool

	// RemoveVolumes removes named volumes declared in compose file.
	// Maps to: -v flag
	// WARNING: This deletes the Prometheus TSDB and Loki chunks.
	RemoveVolumes bool

	// Timeout for graceful container shutdown.
	Timeout time.Duration
}

// StopOptions configures the Stop operation.
type StopOptions struct {
	// GracefulTimeout is the time to wait for graceful shutdown (SIGTERM).
	// After this timeout, containers are force-stopped with SIGKILL.
	// Default: 10 seconds
	GracefulTimeout time.Duration

	// SkipForceStop disables the automatic force-stop after graceful timeout.
	// Default: false (force-stop enabled)
	SkipForceStop bool
}

// StopResult contains the result of a Stop operation.
type StopResult struct {
	// TotalStopped is the total number of containers stopped.
	TotalStopped int

	// GracefulStopped is containers that stopped gracefully (SIGTERM).
	GracefulStopped int

	// ForceStopped is containers that required force stop (SIGKILL).
	ForceStopped int

	// Errors contains any non-fatal errors encountered.
	Errors []string
}

// LogsOptions configures the Logs operation.
type LogsOptions struct {
	// Follow streams logs continuously.
	// Maps to: -f flag
	Follow bool

	// Services limits which services to show logs for.
	// Empty means all services.
	Services []string

	// Tail limits output to last N lines per container.
	// Zero means all logs.
	Tail int

	// Timestamps prepends each line with timestamp.
	// Maps to: --timestamps flag
	Timestamps bool
}

// Result contains the result of a compose operation.
type Result struct {
	// Success indicates if the operation completed without error.
	Success bool

	// ExitCode is the exit code of the compose command.
	ExitCode int

	// Stdout contains standard output.
	Stdout string

	// Stderr contains standard error.
	Stderr string

	// Duration is how long the operation took.
	Duration time.Duration

	// Command is the full command that was executed (for debugging).
	Command string
}

// Status contains the current state of compose services.
type Status struct {
	// Services contains status for each service.
	Services []ServiceState

	// Running is the count of running services.
	Running int

	// Stopped is the count of stopped services.
	Stopped int

	// Unhealthy is the count of unhealthy services.
	Unhealthy int
}

// ServiceState contains the status of a single service.
type ServiceState struct {
	// Name is the compose service name.
	Name string

	// ContainerName is the actual container name.
	ContainerName string

	// State is the container state (running, exited, etc.).
	State string

	// Healthy indicates container health check status.
	// nil means no health check defined.
	Healthy *bool

	// Ports contains published port mappings.
	Ports []PortMapping

	// Image is the container image.
	Image string
}

// PortMapping represents a port binding.
type PortMapping struct {
	// HostIP is the host interface (usually 0.0.0.0).
	HostIP string

	// HostPort is the port on the host.
	HostPort int

	// ContainerPort is the port in the container.
	ContainerPort int

	// Protocol is tcp or udp.
	Protocol string
}

// CleanupResult contains details of a ForceCleanup operation.
type CleanupResult struct {
	// ContainersStopped is the number of containers force-stopped.
	ContainersStopped int

	// ContainersRemoved is the number of containers removed.
	ContainersRemoved int

	// ContainerNames lists the names of removed containers.
	ContainerNames []string

	// Errors contains any non-fatal errors encountered.
	Errors []string
}

// =============================================================================
// Default Implementation
// =============================================================================

// DefaultExecutor implements Executor using the docker compose plugin.
type DefaultExecutor struct {
	config     Config
	proc       process.Manager
	osStatFunc func(string) (os.FileInfo, error)
	mu         sync.Mutex
}

// NewDefaultExecutor creates an Executor with the given configuration.
//
// # Description
//
// Creates an executor configured for docker compose operations.
// Validates the configuration and sets sensible defaults.
//
// # Inputs
//
//   - cfg: Compose configuration (StackDir required)
//   - proc: Manager for command execution
//
// # Outputs
//
//   - *DefaultExecutor: Configured executor
//   - error: If configuration is invalid
//
// # Defaults Applied
//
//   - ProjectName: "beacon"
//   - BaseFile: "docker-compose.yml"
//   - OverrideFile: "docker-compose.override.yml"
//   - ContainerNamePrefix: "beacon-"
//   - DefaultTimeout: 5 minutes
//
// # Limitations
//
//   - Does not verify docker is installed (checked at runtime)
//   - Does not verify StackDir exists (checked at runtime)
func NewDefaultExecutor(cfg Config, proc process.Manager) (*DefaultExecutor, error) {
	if cfg.StackDir == "" {
		return nil, fmt.Errorf("%w: StackDir is required", ErrInvalidConfig)
	}

	applyConfigDefaults(&cfg)

	return &DefaultExecutor{
		config:     cfg,
		proc:       proc,
		osStatFunc: os.Stat,
	}, nil
}

// applyConfigDefaults applies default values to empty fields.
func applyConfigDefaults(cfg *Config) {
	if cfg.ProjectName == "" {
		cfg.ProjectName = "beacon"
	}
	if cfg.BaseFile == "" {
		cfg.BaseFile = "docker-compose.yml"
	}
	if cfg.OverrideFile == "" {
		cfg.OverrideFile = "docker-compose.override.yml"
	}
	if cfg.ContainerNamePrefix == "" {
		cfg.ContainerNamePrefix = "beacon-"
	}
	if cfg.DefaultTimeout == 0 {
		cfg.DefaultTimeout = 5 * time.Minute
	}
}

// =============================================================================
// Interface Implementation
// =============================================================================

// Up starts services defined in the compose configuration.
func (e *DefaultExecutor) Up(ctx context.Context, opts UpOptions) (*Result, error) {
	// Validate env vars before proceeding to prevent config injection
	if err := validateEnvVars(opts.Env); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	args := e.buildComposeFileArgs()
	args = append(args, "up", "-d")

	if opts.Pull {
		args = append(args, "--pull", "always")
	}
	if opts.RemoveOrphans {
		args = append(args, "--remove-orphans")
	}
	if len(opts.Services) > 0 {
		args = append(args, opts.Services...)
	}

	return e.runCompose(ctx, args, opts.Env, e.resolveTimeout(opts.Timeout))
}

// Down stops and removes containers defined in compose configuration.
func (e *DefaultExecutor) Down(ctx context.Context, opts DownOptions) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	args := e.buildComposeFileArgs()
	args = append(args, "down")

	if opts.RemoveOrphans {
		args = append(args, "--remove-orphans")
	}
	if opts.RemoveVolumes {
		args = append(args, "-v")
	}

	return e.runCompose(ctx, args, nil, e.resolveTimeout(opts.Timeout))
}

// Stop stops all stack containers with timeout-based escalation.
func (e *DefaultExecutor) Stop(ctx context.Context, opts StopOptions) (*StopResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := &StopResult{Errors: []string{}}

	gracefulTimeout := opts.GracefulTimeout
	if gracefulTimeout == 0 {
		gracefulTimeout = 10 * time.Second
	}

	runningBefore, err := e.listRunningContainers(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to list containers: %v", err))
	}

	// Phase 1: graceful stop (SIGTERM, wait)
	stopArgs := []string{
		"stop",
		"-t", fmt.Sprintf("%d", int(gracefulTimeout.Seconds())),
	}
	stopArgs = append(stopArgs, runningBefore...)
	if len(runningBefore) > 0 {
		if _, err := e.runDocker(ctx, stopArgs, e.config.DefaultTimeout); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("graceful stop: %v", err))
		}
	}

	runningAfterGraceful, _ := e.listRunningContainers(ctx)
	result.GracefulStopped = len(runningBefore) - len(runningAfterGraceful)

	// Phase 2: force stop stragglers (SIGKILL)
	if len(runningAfterGraceful) > 0 && !opts.SkipForceStop {
		forceArgs := append([]string{"stop", "-t", "0"}, runningAfterGraceful...)
		if _, err := e.runDocker(ctx, forceArgs, 30*time.Second); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("force stop: %v", err))
		}
		runningAfterForce, _ := e.listRunningContainers(ctx)
		result.ForceStopped = len(runningAfterGraceful) - len(runningAfterForce)
	}

	result.TotalStopped = result.GracefulStopped + result.ForceStopped
	return result, nil
}

// Logs streams container logs to the provided writer.
func (e *DefaultExecutor) Logs(ctx context.Context, opts LogsOptions, w io.Writer) error {
	args := e.buildComposeFileArgs()
	args = append(args, "logs")

	if opts.Follow {
		args = append(args, "-f")
	}
	if opts.Tail > 0 {
		args = append(args, "--tail", fmt.Sprintf("%d", opts.Tail))
	}
	if opts.Timestamps {
		args = append(args, "--timestamps")
	}
	if len(opts.Services) > 0 {
		args = append(args, opts.Services...)
	}

	composeArgs := append([]string{"compose"}, args...)
	return e.proc.RunStreaming(ctx, e.config.StackDir, w, "docker", composeArgs...)
}

// Status returns the current state of compose services.
func (e *DefaultExecutor) Status(ctx context.Context) (*Status, error) {
	args := []string{
		"ps", "-a",
		"--filter", fmt.Sprintf("name=%s", e.config.ContainerNamePrefix),
		"--format", "json",
	}

	output, err := e.runDocker(ctx, args, 30*time.Second)
	if err != nil {
		return nil, err
	}

	return e.parseContainerStatus(output.Stdout)
}

// ForceCleanup removes all stack containers regardless of compose state.
func (e *DefaultExecutor) ForceCleanup(ctx context.Context) (*CleanupResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := &CleanupResult{
		ContainerNames: []string{},
		Errors:         []string{},
	}

	// Step 1: force stop everything matching the prefix
	running, err := e.listRunningContainers(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("list containers: %v", err))
	}
	if len(running) > 0 {
		stopArgs := append([]string{"stop", "-t", "0"}, running...)
		if _, err := e.runDocker(ctx, stopArgs, 30*time.Second); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("force stop: %v", err))
		} else {
			result.ContainersStopped = len(running)
		}
	}

	// Step 2: remove by name filter
	e.removeContainersByFilter(ctx, fmt.Sprintf("name=%s", e.config.ContainerNamePrefix), result)

	// Step 3: remove by compose project label (catches renamed containers)
	e.removeContainersByFilter(ctx,
		fmt.Sprintf("label=com.docker.compose.project=%s", e.config.ProjectName), result)

	if len(result.Errors) > 0 {
		return result, fmt.Errorf("%w: %s", ErrCleanupPartial, strings.Join(result.Errors, "; "))
	}
	return result, nil
}

// GetComposeFiles returns the ordered list of compose files in use.
func (e *DefaultExecutor) GetComposeFiles() []string {
	files := []string{}

	// Base file (required, always included)
	files = append(files, filepath.Join(e.config.StackDir, e.config.BaseFile))

	// Override file (only if exists)
	overridePath := filepath.Join(e.config.StackDir, e.config.OverrideFile)
	if e.fileExists(overridePath) {
		files = append(files, overridePath)
	}

	return files
}

// =============================================================================
// Private Helper Methods
// =============================================================================

// buildComposeFileArgs builds the -p/-f arguments for compose invocations.
func (e *DefaultExecutor) buildComposeFileArgs() []string {
	args := []string{"-p", e.config.ProjectName}
	for _, file := range e.GetComposeFiles() {
		args = append(args, "-f", file)
	}
	return args
}

// runCompose executes a docker compose command with the given args, extra
// environment, and timeout. Output is fully buffered.
func (e *DefaultExecutor) runCompose(ctx context.Context, args []string, env map[string]string, timeout time.Duration) (*Result, error) {
	start := time.Now()

	cmdEnv := buildCommandEnvironment(env)
	cmdStr := fmt.Sprintf("docker compose %s", strings.Join(args, " "))

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	composeArgs := append([]string{"compose"}, args...)
	stdout, stderr, exitCode, err := e.proc.RunInDir(execCtx, e.config.StackDir, cmdEnv, "docker", composeArgs...)

	result := &Result{
		Success:  exitCode == 0 && err == nil,
		ExitCode: exitCode,
		Stdout:   stdout,
		Stderr:   stderr,
		Duration: time.Since(start),
		Command:  cmdStr,
	}

	if err != nil {
		return result, fmt.Errorf("compose command failed: %w", err)
	}
	if exitCode != 0 {
		return result, fmt.Errorf("compose command exited with code %d: %s", exitCode, stderr)
	}

	return result, nil
}

// runDocker executes a direct docker command (not through compose). Used for
// container-level operations like stop, rm, and ps.
func (e *DefaultExecutor) runDocker(ctx context.Context, args []string, timeout time.Duration) (*Result, error) {
	start := time.Now()
	cmdStr := fmt.Sprintf("docker %s", strings.Join(args, " "))

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stdout, stderr, exitCode, err := e.proc.RunInDir(execCtx, "", nil, "docker", args...)

	result := &Result{
		Success:  exitCode == 0 && err == nil,
		ExitCode: exitCode,
		Stdout:   stdout,
		Stderr:   stderr,
		Duration: time.Since(start),
		Command:  cmdStr,
	}

	if err != nil {
		return result, fmt.Errorf("docker command failed: %w", err)
	}
	if exitCode != 0 {
		return result, fmt.Errorf("docker command exited with code %d: %s", exitCode, stderr)
	}

	return result, nil
}

// listRunningContainers returns IDs of running containers matching the prefix.
func (e *DefaultExecutor) listRunningContainers(ctx context.Context) ([]string, error) {
	args := []string{
		"ps", "-q",
		"--filter", fmt.Sprintf("name=%s", e.config.ContainerNamePrefix),
		"--filter", "status=running",
	}

	output, err := e.runDocker(ctx, args, 30*time.Second)
	if err != nil {
		return nil, err
	}

	return parseLines(output.Stdout), nil
}

// removeContainersByFilter force-removes containers matching a docker filter.
// Errors are recorded in the result but don't stop cleanup.
func (e *DefaultExecutor) removeContainersByFilter(ctx context.Context, filter string, result *CleanupResult) {
	listArgs := []string{"ps", "-aq", "--filter", filter}
	output, err := e.runDocker(ctx, listArgs, 30*time.Second)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("list (%s): %v", filter, err))
		return
	}

	ids := parseLines(output.Stdout)
	if len(ids) == 0 {
		return
	}

	rmArgs := append([]string{"rm", "-f"}, ids...)
	if rmOut, err := e.runDocker(ctx, rmArgs, 30*time.Second); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("remove (%s): %v", filter, err))
	} else {
		removed := parseLines(rmOut.Stdout)
		result.ContainerNames = append(result.ContainerNames, removed...)
		result.ContainersRemoved += len(removed)
	}
}

// parseContainerStatus parses docker ps JSON output into a Status.
//
// Docker emits one JSON object per line (not a JSON array), so the output is
// parsed line by line. Container names follow the compose convention
// prefix-servicename-N.
func (e *DefaultExecutor) parseContainerStatus(jsonOutput string) (*Status, error) {
	status := &Status{Services: []ServiceState{}}

	for _, line := range parseLines(jsonOutput) {
		var c struct {
			Names  string `json:"Names"`
			State  string `json:"State"`
			Status string `json:"Status"`
			Image  string `json:"Image"`
			Ports  string `json:"Ports"`
		}
		if err := json.Unmarshal([]byte(line), &c); err != nil {
			return nil, fmt.Errorf("failed to parse container JSON: %w", err)
		}

		svc := ServiceState{
			Name:          e.extractServiceName(c.Names),
			ContainerName: c.Names,
			State:         c.State,
			Image:         c.Image,
			Healthy:       parseHealthStatus(c.Status),
			Ports:         parsePortMappings(c.Ports),
		}
		status.Services = append(status.Services, svc)

		switch c.State {
		case "running":
			status.Running++
		case "exited", "stopped":
			status.Stopped++
		}
		if svc.Healthy != nil && !*svc.Healthy {
			status.Unhealthy++
		}
	}

	return status, nil
}

// parseHealthStatus extracts health from a status string like
// "Up 2 hours (healthy)". Returns nil if no healthcheck is defined.
func parseHealthStatus(statusStr string) *bool {
	if strings.Contains(statusStr, "unhealthy") {
		healthy := false
		return &healthy
	}
	if strings.Contains(statusStr, "healthy") {
		healthy := true
		return &healthy
	}
	return nil
}

// parsePortMappings parses a docker ps Ports string like
// "0.0.0.0:9090->9090/tcp, :::9090->9090/tcp" into structured mappings.
func parsePortMappings(ports string) []PortMapping {
	result := []PortMapping{}
	for _, part := range strings.Split(ports, ",") {
		part = strings.TrimSpace(part)
		if part == "" || !strings.Contains(part, "->") {
			continue
		}

		halves := strings.SplitN(part, "->", 2)
		hostSide, containerSide := halves[0], halves[1]

		m := PortMapping{Protocol: "tcp"}
		if idx := strings.Index(containerSide, "/"); idx >= 0 {
			m.Protocol = containerSide[idx+1:]
			containerSide = containerSide[:idx]
		}
		fmt.Sscanf(containerSide, "%d", &m.ContainerPort)

		if idx := strings.LastIndex(hostSide, ":"); idx >= 0 {
			m.HostIP = hostSide[:idx]
			fmt.Sscanf(hostSide[idx+1:], "%d", &m.HostPort)
		}

		result = append(result, m)
	}
	return result
}

// extractServiceName extracts the compose service name from a container name
// following the pattern prefix-servicename-N.
func (e *DefaultExecutor) extractServiceName(containerName string) string {
	name := strings.TrimPrefix(containerName, e.config.ContainerNamePrefix)

	parts := strings.Split(name, "-")
	if len(parts) > 1 {
		lastPart := parts[len(parts)-1]
		if _, err := fmt.Sscanf(lastPart, "%d", new(int)); err == nil {
			parts = parts[:len(parts)-1]
		}
	}

	return strings.Join(parts, "-")
}

// resolveTimeout returns the timeout to use, applying default if zero.
func (e *DefaultExecutor) resolveTimeout(timeout time.Duration) time.Duration {
	if timeout == 0 {
		return e.config.DefaultTimeout
	}
	return timeout
}

// fileExists checks if a file exists using the injected stat function.
func (e *DefaultExecutor) fileExists(path string) bool {
	_, err := e.osStatFunc(path)
	return err == nil
}

// parseLines splits output into non-empty trimmed lines.
func parseLines(output string) []string {
	lines := []string{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// buildCommandEnvironment combines the current process environment with
// additional variables. User-provided variables override existing environment
// variables with the same key.
func buildCommandEnvironment(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}

	envMap := make(map[string]string)
	for _, entry := range os.Environ() {
		if idx := strings.Index(entry, "="); idx > 0 {
			envMap[entry[:idx]] = entry[idx+1:]
		}
	}

	for k, v := range env {
		envMap[k] = v
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// IsSensitiveEnvVar reports whether an environment variable name should be
// redacted in logs. Pattern-based, may have false positives.
func IsSensitiveEnvVar(name string) bool {
	upper := strings.ToUpper(name)
	return strings.Contains(upper, "TOKEN") ||
		strings.Contains(upper, "SECRET") ||
		strings.Contains(upper, "KEY") ||
		strings.Contains(upper, "PASSWORD") ||
		strings.Contains(upper, "CREDENTIAL")
}

// validateEnvVars ensures all environment variable keys match the allowed
// pattern. This prevents config injection through malformed env var names.
func validateEnvVars(env map[string]string) error {
	for key := range env {
		if !envVarKeyRegex.MatchString(key) {
			return fmt.Errorf("%w: key %q contains invalid characters (must match [a-zA-Z_][a-zA-Z0-9_]*)", ErrInvalidEnvVar, key)
		}
	}
	return nil
}

// =============================================================================
// Mock Implementation
// =============================================================================

// MockExecutor is a test double for Executor.
//
// # Description
//
// Provides a configurable mock implementation for testing.
// Each method can be configured with a custom function.
// Tracks all calls for verification.
//
// # Example
//
//	mock := &MockExecutor{
//	    UpFunc: func(ctx context.Context, opts UpOptions) (*Result, error) {
//	        return &Result{Success: true}, nil
//	    },
//	}
//	result, _ := mock.Up(ctx, UpOptions{})
//	assert.Equal(t, 1, len(mock.UpCalls))
type MockExecutor struct {
	UpFunc              func(context.Context, UpOptions) (*Result, error)
	DownFunc            func(context.Context, DownOptions) (*Result, error)
	StopFunc            func(context.Context, StopOptions) (*StopResult, error)
	LogsFunc            func(context.Context, LogsOptions, io.Writer) error
	StatusFunc          func(context.Context) (*Status, error)
	ForceCleanupFunc    func(context.Context) (*CleanupResult, error)
	GetComposeFilesFunc func() []string

	UpCalls      []UpOptions
	DownCalls    []DownOptions
	StopCalls    []StopOptions
	CleanupCalls int
	mu           sync.Mutex
}

// Up implements Executor.
func (m *MockExecutor) Up(ctx context.Context, opts UpOptions) (*Result, error) {
	m.mu.Lock()
	m.UpCalls = append(m.UpCalls, opts)
	m.mu.Unlock()

	if m.UpFunc != nil {
		return m.UpFunc(ctx, opts)
	}
	return &Result{Success: true}, nil
}

// Down implements Executor.
func (m *MockExecutor) Down(ctx context.Context, opts DownOptions) (*Result, error) {
	m.mu.Lock()
	m.DownCalls = append(m.DownCalls, opts)
	m.mu.Unlock()

	if m.DownFunc != nil {
		return m.DownFunc(ctx, opts)
	}
	return &Result{Success: true}, nil
}

// Stop implements Executor.
func (m *MockExecutor) Stop(ctx context.Context, opts StopOptions) (*StopResult, error) {
	m.mu.Lock()
	m.StopCalls = append(m.StopCalls, opts)
	m.mu.Unlock()

	if m.StopFunc != nil {
		return m.StopFunc(ctx, opts)
	}
	return &StopResult{TotalStopped: 0}, nil
}

// Logs implements Executor.
func (m *MockExecutor) Logs(ctx context.Context, opts LogsOptions, w io.Writer) error {
	if m.LogsFunc != nil {
		return m.LogsFunc(ctx, opts, w)
	}
	return nil
}

// Status implements Executor.
func (m *MockExecutor) Status(ctx context.Context) (*Status, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx)
	}
	return &Status{Services: []ServiceState{}}, nil
}

// ForceCleanup implements Executor.
func (m *MockExecutor) ForceCleanup(ctx context.Context) (*CleanupResult, error) {
	m.mu.Lock()
	m.CleanupCalls++
	m.mu.Unlock()

	if m.ForceCleanupFunc != nil {
		return m.ForceCleanupFunc(ctx)
	}
	return &CleanupResult{}, nil
}

// GetComposeFiles implements Executor.
func (m *MockExecutor) GetComposeFiles() []string {
	if m.GetComposeFilesFunc != nil {
		return m.GetComposeFilesFunc()
	}
	return []string{}
}

// Compile-time interface compliance check.
var (
	_ Executor = (*DefaultExecutor)(nil)
	_ Executor = (*MockExecutor)(nil)
)
