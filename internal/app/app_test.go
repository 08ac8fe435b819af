package app

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/samvad-hq/samvad-resttemplate/internal/config"
	"github.com/samvad-hq/samvad-resttemplate/internal/domain"
	"github.com/samvad-hq/samvad-resttemplate/internal/logger"
	"github.com/samvad-hq/samvad-resttemplate/pkg/registry"
	"github.com/samvad-hq/samvad-resttemplate/pkg/resttemplate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// productServer emulates a product service: GET lists, POST echoes with an id.
func productServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			_, _ = io.WriteString(w, `[{"id":1,"name":"widget","price":2.5}]`)
		case http.MethodPost:
			var p domain.Product
			if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			p.ID = 42
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(p)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func hostPort(t *testing.T, rawURL string) (string, int) {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func writeRegistryFile(t *testing.T, service, host string, port int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "instances.yaml")
	content := "instances:\n" +
		"  - service: " + service + "\n" +
		"    address: " + host + "\n" +
		"    port: " + strconv.Itoa(port) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func fileConfig(registryFile string) *config.Config {
	return &config.Config{
		AppName:         "resttemplate-test",
		Env:             "test",
		RegistryType:    registry.TypeFile,
		RegistryFile:    registryFile,
		SelectionPolicy: "tick",
		HTTPTimeout:     5 * time.Second,
		RegistryTTL:     time.Minute,
	}
}

func TestNewClientRequiresConfig(t *testing.T) {
	_, err := NewClient(context.Background(), nil, nil)
	require.Error(t, err)
}

func TestNewClientRejectsUnknownPolicy(t *testing.T) {
	cfg := fileConfig("instances.yaml")
	cfg.SelectionPolicy = "weighted"

	_, err := NewClient(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestClientDispatchesThroughFileRegistry(t *testing.T) {
	srv := productServer(t)
	host, port := hostPort(t, srv.URL)
	cfg := fileConfig(writeRegistryFile(t, "ProductService", host, port))

	client, err := NewClient(context.Background(), cfg, &logger.NopLogger{})
	require.NoError(t, err)
	defer client.Close()

	resp, err := resttemplate.GetForEntity[[]domain.Product](context.Background(), client.RT, "http://ProductService/api/Product/", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []domain.Product{{ID: 1, Name: "widget", Price: 2.5}}, resp.Body)

	resolved, err := client.Resolver.ResolveURL(context.Background(), "http://productservice/api/Product/?q=1")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/api/Product/?q=1", resolved)
}

func TestClientUnknownServiceFails(t *testing.T) {
	srv := productServer(t)
	host, port := hostPort(t, srv.URL)
	cfg := fileConfig(writeRegistryFile(t, "ProductService", host, port))

	client, err := NewClient(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.RT.Post(context.Background(), "http://UnknownService/api/x", map[string]string{"a": "b"}, nil)
	require.ErrorIs(t, err, resttemplate.ErrNoInstanceFound)
}

func TestClientPublishesDispatchEvents(t *testing.T) {
	srv := productServer(t)
	host, port := hostPort(t, srv.URL)

	var (
		mu     sync.Mutex
		events []map[string]any
	)
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var evt map[string]any
		if err := json.NewDecoder(r.Body).Decode(&evt); err == nil {
			mu.Lock()
			events = append(events, evt)
			mu.Unlock()
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer sink.Close()

	pubFile := filepath.Join(t.TempDir(), "publishers.yaml")
	require.NoError(t, os.WriteFile(pubFile, []byte(`
publishers:
  - id: hook
    type: http
    http:
      url: `+sink.URL+`
`), 0o644))

	cfg := fileConfig(writeRegistryFile(t, "ProductService", host, port))
	cfg.PublishersFile = pubFile

	client, err := NewClient(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.RT.Delete(context.Background(), "http://ProductService/api/Product/1", nil)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, "resttemplate-test", events[0]["source"])
	dispatch, ok := events[0]["dispatch"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "DELETE", dispatch["method"])
	assert.Equal(t, float64(http.StatusNoContent), dispatch["status_code"])
}

func TestRunnerPreservesOrderAndErrors(t *testing.T) {
	srv := productServer(t)
	host, port := hostPort(t, srv.URL)
	cfg := fileConfig(writeRegistryFile(t, "ProductService", host, port))

	client, err := NewClient(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer client.Close()

	calls := append(
		Repeat(Call{URL: "http://ProductService/api/Product/"}, 5),
		Call{Method: "post", URL: "http://ProductService/api/Product", Body: json.RawMessage(`{"name":"gadget","price":3}`)},
		Call{URL: "http://MissingService/api"},
	)

	results, err := NewRunner(client.RT, 3, nil).Run(context.Background(), calls)
	require.NoError(t, err)
	require.Len(t, results, len(calls))

	for i := 0; i < 5; i++ {
		require.NoError(t, results[i].Err)
		assert.Equal(t, i, results[i].Index)
		assert.Equal(t, http.StatusOK, results[i].Response.StatusCode)
		assert.JSONEq(t, `[{"id":1,"name":"widget","price":2.5}]`, string(results[i].Response.Body))
	}

	require.NoError(t, results[5].Err)
	assert.Equal(t, http.StatusCreated, results[5].Response.StatusCode)
	assert.JSONEq(t, `{"id":42,"name":"gadget","price":3}`, string(results[5].Response.Body))

	assert.ErrorIs(t, results[6].Err, resttemplate.ErrNoInstanceFound)
	assert.Nil(t, results[6].Response)
}

func TestRunnerNotInitialized(t *testing.T) {
	var r *Runner
	_, err := r.Run(context.Background(), []Call{{URL: "http://x/"}})
	require.Error(t, err)
}

func TestRepeatMinimumOne(t *testing.T) {
	assert.Len(t, Repeat(Call{URL: "http://x/"}, 0), 1)
	assert.Len(t, Repeat(Call{URL: "http://x/"}, 4), 4)
}

func TestRunDemo(t *testing.T) {
	srv := productServer(t)
	host, port := hostPort(t, srv.URL)
	cfg := fileConfig(writeRegistryFile(t, "ProductService", host, port))

	client, err := NewClient(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer client.Close()

	report, err := RunDemo(context.Background(), client.RT, "http://ProductService/api/Product/", domain.Product{Name: "gizmo", Price: 9.5}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, report.ListStatus)
	assert.Len(t, report.Listed, 1)
	assert.Equal(t, http.StatusCreated, report.PostStatus)
	require.NotNil(t, report.Created)
	assert.Equal(t, domain.Product{ID: 42, Name: "gizmo", Price: 9.5}, *report.Created)
}

func TestRegisterInstanceBolt(t *testing.T) {
	cfg := &config.Config{
		RegistryType:    registry.TypeBBolt,
		BBoltPath:       filepath.Join(t.TempDir(), "registry.db"),
		RegistryTTL:     time.Minute,
		SelectionPolicy: "first",
	}

	require.NoError(t, RegisterInstance(context.Background(), cfg, registry.Instance{
		ID: "p1", Service: "ProductService", Address: "10.0.0.1", Port: 8080,
	}))

	client, err := NewClient(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer client.Close()

	resolved, err := client.Resolver.ResolveURL(context.Background(), "http://ProductService/api")
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.1:8080/api", resolved)
}

func TestRegisterInstanceUnsupported(t *testing.T) {
	err := RegisterInstance(context.Background(), &config.Config{RegistryType: registry.TypeFile}, registry.Instance{})
	require.ErrorIs(t, err, ErrRegistrationUnsupported)
	assert.True(t, strings.Contains(err.Error(), "file"))
}

func TestRunnerSendsNullBodyForBodilessPostAndPut(t *testing.T) {
	type captured struct {
		method, body, contentType string
	}
	var (
		mu   sync.Mutex
		seen []captured
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		mu.Lock()
		seen = append(seen, captured{method: r.Method, body: string(raw), contentType: r.Header.Get("Content-Type")})
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	host, port := hostPort(t, srv.URL)
	cfg := fileConfig(writeRegistryFile(t, "ProductService", host, port))

	client, err := NewClient(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer client.Close()

	results, err := NewRunner(client.RT, 1, nil).Run(context.Background(), []Call{
		{Method: http.MethodPost, URL: "http://ProductService/api/Product"},
		{Method: http.MethodPut, URL: "http://ProductService/api/Product/1"},
		{Method: http.MethodGet, URL: "http://ProductService/api/Product/1"},
	})
	require.NoError(t, err)
	for _, res := range results {
		require.NoError(t, res.Err)
		assert.False(t, res.Response.HasBody)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 3)
	assert.Equal(t, captured{method: http.MethodPost, body: "null", contentType: "application/json"}, seen[0])
	assert.Equal(t, captured{method: http.MethodPut, body: "null", contentType: "application/json"}, seen[1])
	assert.Equal(t, captured{method: http.MethodGet}, seen[2])
}
