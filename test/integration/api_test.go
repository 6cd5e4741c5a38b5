package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/therealutkarshpriyadarshi/numquant/pkg/api/rest"
	"github.com/therealutkarshpriyadarshi/numquant/pkg/api/rest/middleware"
	"github.com/therealutkarshpriyadarshi/numquant/pkg/config"
	"github.com/therealutkarshpriyadarshi/numquant/pkg/observability"
)

func setupTestServer(t *testing.T, mutate func(*rest.Config)) *httptest.Server {
	t.Helper()

	cfg := rest.Config{
		Host:  "127.0.0.1",
		Codec: config.Default().Codec,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	logger := observability.NewLogger(observability.ERROR, io.Discard)
	metrics := observability.NewMetricsWith(prometheus.NewRegistry())
	srv := rest.NewServer(cfg, logger, metrics)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, client *http.Client, url, token string, body, out interface{}) int {
	t.Helper()

	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func TestFullPipeline_Linear(t *testing.T) {
	ts := setupTestServer(t, nil)
	client := ts.Client()

	data := make([]float64, 1024)
	for i := range data {
		data[i] = math.Sin(float64(i) / 100)
	}

	for _, kind := range []string{"uint8", "int16", "uint24", "int32"} {
		t.Run(kind, func(t *testing.T) {
			var enc rest.EncodeResponse
			status := post(t, client, ts.URL+"/v1/encode/linear", "", rest.EncodeRequest{
				Kind:  kind,
				Shape: []int{32, 32},
				Data:  data,
			}, &enc)
			if status != http.StatusOK {
				t.Fatalf("encode status = %d", status)
			}

			var dec rest.DecodeResponse
			status = post(t, client, ts.URL+"/v1/decode/linear", "", rest.DecodeRequest{
				Kind:    enc.Kind,
				Shape:   enc.Shape,
				Payload: enc.Payload,
			}, &dec)
			if status != http.StatusOK {
				t.Fatalf("decode status = %d", status)
			}

			if len(dec.Data) != len(data) {
				t.Fatalf("got %d values, want %d", len(dec.Data), len(data))
			}

			// Reconstruction error bounded by one quantum
			k, err := parseKindBits(kind)
			if err != nil {
				t.Fatal(err)
			}
			quantum := 2.0 / (math.Pow(2, float64(k)) - 1)
			for i := range data {
				if math.Abs(dec.Data[i]-data[i]) > quantum {
					t.Fatalf("data[%d] = %v, want %v within %v", i, dec.Data[i], data[i], quantum)
					break
				}
			}
		})
	}
}

func parseKindBits(name string) (int, error) {
	switch name {
	case "uint8", "int8":
		return 8, nil
	case "uint16", "int16":
		return 16, nil
	case "uint24", "int24":
		return 24, nil
	case "uint32", "int32":
		return 32, nil
	}
	return 0, nil
}

func TestFullPipeline_LogSlices(t *testing.T) {
	ts := setupTestServer(t, nil)
	client := ts.Client()

	// Three rows of magnitudes at very different scales
	data := []float64{
		0.001, 0.002, 0.004, 0.008,
		1, 2, 4, 8,
		1000, 2000, 4000, 8000,
	}
	dim := 0
	var enc rest.EncodeSlicesResponse
	status := post(t, client, ts.URL+"/v1/encode/slices", "", rest.EncodeRequest{
		Kind:   "uint16",
		Shape:  []int{3, 4},
		Data:   data,
		Dim:    &dim,
		Scheme: "log",
	}, &enc)
	if status != http.StatusOK {
		t.Fatalf("encode status = %d", status)
	}
	if len(enc.Slices) != 3 {
		t.Fatalf("got %d slices, want 3", len(enc.Slices))
	}

	var dec rest.DecodeResponse
	status = post(t, client, ts.URL+"/v1/decode/slices?scheme=log", "", rest.DecodeRequest{
		Slices: enc.Slices,
	}, &dec)
	if status != http.StatusOK {
		t.Fatalf("decode status = %d", status)
	}

	// Sliced decode relocates the sliced dimension to the last axis
	if len(dec.Shape) != 2 || dec.Shape[0] != 4 || dec.Shape[1] != 3 {
		t.Fatalf("shape = %v, want [4 3]", dec.Shape)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			got := dec.Data[j*3+i]
			want := data[i*4+j]
			rel := math.Abs(got-want) / want
			if rel > 1e-3 {
				t.Errorf("element (%d,%d) = %v, want ~%v (rel err %v)", i, j, got, want, rel)
			}
		}
	}
}

func TestAuthenticatedPipeline(t *testing.T) {
	secret := "integration-secret"
	ts := setupTestServer(t, func(c *rest.Config) {
		c.Auth = middleware.AuthConfig{
			Enabled:     true,
			JWTSecret:   secret,
			PublicPaths: []string{"/v1/health"},
		}
	})
	client := ts.Client()

	req := rest.EncodeRequest{Kind: "uint8", Shape: []int{2}, Data: []float64{1, 2}}

	if status := post(t, client, ts.URL+"/v1/encode/linear", "", req, nil); status != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", status)
	}

	token, err := middleware.GenerateToken("integration", []string{"encode", "decode"}, secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	var enc rest.EncodeResponse
	if status := post(t, client, ts.URL+"/v1/encode/linear", token, req, &enc); status != http.StatusOK {
		t.Fatalf("authenticated encode status = %d", status)
	}

	var dec rest.DecodeResponse
	status := post(t, client, ts.URL+"/v1/decode/linear", token, rest.DecodeRequest{
		Kind: enc.Kind, Shape: enc.Shape, Payload: enc.Payload,
	}, &dec)
	if status != http.StatusOK {
		t.Fatalf("authenticated decode status = %d", status)
	}
	if len(dec.Data) != 2 {
		t.Errorf("got %d values, want 2", len(dec.Data))
	}

	// Expired tokens are rejected
	expired, err := middleware.GenerateToken("integration", nil, secret, -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if status := post(t, client, ts.URL+"/v1/encode/linear", expired, req, nil); status != http.StatusUnauthorized {
		t.Errorf("expired token status = %d, want 401", status)
	}
}

func TestConcurrentEncodes(t *testing.T) {
	ts := setupTestServer(t, nil)
	client := ts.Client()

	const workers = 8
	done := make(chan error, workers)

	for w := 0; w < workers; w++ {
		go func(seed int) {
			data := make([]float64, 256)
			for i := range data {
				data[i] = float64((i*seed)%100) / 100
			}

			buf, _ := json.Marshal(rest.EncodeRequest{
				Kind: "uint16", Shape: []int{256}, Data: data,
			})
			for i := 0; i < 20; i++ {
				resp, err := client.Post(ts.URL+"/v1/encode/linear", "application/json", bytes.NewReader(buf))
				if err != nil {
					done <- err
					return
				}
				resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					done <- nil
					return
				}
			}
			done <- nil
		}(w + 1)
	}

	for w := 0; w < workers; w++ {
		if err := <-done; err != nil {
			t.Fatalf("worker failed: %v", err)
		}
	}
}
