//go:build e2e

package signup_test

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/signup/pkg/signupsdk"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Shared container setup and helpers for the signup end-to-end tests. The
 * service runs with the log notifier, so passcodes are read back from the
 * container output.
 */

const (
	testImageName = "signup-test:latest"

	testPassword   = "correct horse battery"
	passcodePrefix = "Your registration pin code is "
)

func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building Signup Service Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up Signup Service Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	cmd := exec.CommandContext(context.Background(), "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/signup/Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout
	return cmd.Run()
}

func cleanupDockerImage() {
	cmd := exec.CommandContext(context.Background(), "docker", "rmi", "-f", testImageName)
	_ = cmd.Run()
}

// signupContainer is a running service plus a client pointed at it.
type signupContainer struct {
	container testcontainers.Container
	Client    *signupsdk.SDKClient
}

// setupSignupContainer starts the service with relaxed rate limits unless
// env overrides them.
func setupSignupContainer(t *testing.T, env map[string]string) *signupContainer {
	t.Helper()
	ctx := context.Background()

	base := map[string]string{
		"ENV":                         "test",
		"LOG_LEVEL":                   "info",
		"LOG_FORMAT":                  "json",
		"NOTIFY_DRIVER":               "log",
		"RATELIMIT_STRICT_REQUESTS":   "1000",
		"RATELIMIT_STRICT_WINDOW_SEC": "60",
		"RATELIMIT_STRICT_BURST":      "1000",
		"RATELIMIT_MODERATE_REQUESTS": "1000",
		"RATELIMIT_MODERATE_BURST":    "1000",
	}
	for k, v := range env {
		base[k] = v
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        testImageName,
			ExposedPorts: []string{"8080/tcp"},
			Env:          base,
			WaitingFor: wait.ForHTTP("/livez").
				WithPort("8080/tcp").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	return &signupContainer{
		container: container,
		Client:    signupsdk.NewSDKClient(fmt.Sprintf("http://%s:%s", host, mappedPort.Port())),
	}
}

// passcodes returns every pin the log notifier wrote, oldest first.
func (c *signupContainer) passcodes(t *testing.T) []string {
	t.Helper()

	logs, err := c.container.Logs(context.Background())
	require.NoError(t, err)
	defer logs.Close()

	var pins []string
	scanner := bufio.NewScanner(logs)
	for scanner.Scan() {
		line := scanner.Text()
		start := strings.IndexByte(line, '{')
		if start < 0 {
			continue
		}

		var entry struct {
			Msg  string `json:"msg"`
			Body string `json:"body"`
		}
		if json.Unmarshal([]byte(line[start:]), &entry) != nil {
			continue
		}
		if entry.Msg != "notification delivered to log" {
			continue
		}
		if pin, ok := strings.CutPrefix(entry.Body, passcodePrefix); ok {
			pins = append(pins, pin)
		}
	}
	require.NoError(t, scanner.Err())
	return pins
}

// latestPasscode waits for the most recent pin to show up in the logs.
func (c *signupContainer) latestPasscode(t *testing.T, after int) string {
	t.Helper()

	var pins []string
	require.Eventually(t, func() bool {
		pins = c.passcodes(t)
		return len(pins) > after
	}, 10*time.Second, 200*time.Millisecond, "no passcode was logged")

	return pins[len(pins)-1]
}

func registerRequest(email, phone string) signupsdk.RegisterRequest {
	return signupsdk.RegisterRequest{
		Name:                 "Jane Doe",
		Email:                email,
		Password:             testPassword,
		PasswordConfirmation: testPassword,
		PhoneNumber:          phone,
	}
}

// requireAPIError asserts err is an API error with the given status and code.
func requireAPIError(t *testing.T, err error, status int, code string) *signupsdk.APIError {
	t.Helper()
	require.Error(t, err)

	apiErr, ok := err.(*signupsdk.APIError)
	require.True(t, ok, "expected *signupsdk.APIError, got %T: %v", err, err)
	require.Equal(t, status, apiErr.StatusCode)
	require.Equal(t, code, apiErr.Code)
	return apiErr
}
