// Load harness for the completion endpoint. Starts a mock upstream and the
// real server, then drives traffic with vegeta.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"time"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

const (
	mockPort = 9091
	appPort  = 8081
)

var (
	streamChunks = [][]byte{
		[]byte("data: {\"choices\":[{\"delta\":{\"content\":\"Bench\"}}]}\n\n"),
		[]byte("data: {\"choices\":[{\"delta\":{\"content\":\"mark\"}}]}\n\n"),
		[]byte("data: {\"choices\":[{\"delta\":{\"content\":\" response\"}}]}\n\n"),
		[]byte("data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n"),
		[]byte("data: [DONE]\n\n"),
	}
	unaryResp = []byte(`{
		"id": "bench-123",
		"model": "gpt-3.5-turbo",
		"choices": [{"message": {"content": "Hello"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 2, "completion_tokens": 1, "total_tokens": 3}
	}`)
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "Duration of the test")
	rps := flag.Int("rate", 50, "Requests per second")
	stream := flag.Bool("stream", false, "Use streaming requests")
	flag.Parse()

	go startMockUpstream()

	fmt.Println("Building server...")
	buildCmd := exec.Command("go", "build", "-o", "bin/server", "./cmd/server")
	buildCmd.Stdout = os.Stdout
	buildCmd.Stderr = os.Stderr
	if err := buildCmd.Run(); err != nil {
		log.Fatalf("Failed to build server: %v", err)
	}

	fmt.Println("Starting server...")
	cmd := exec.Command("./bin/server")
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("PORT=%d", appPort),
		"APP_ENV=production",
		"LOG_LEVEL=error",
		"OPENAI_API_KEY=bench-key",
		fmt.Sprintf("OPENAI_API_BASE_URL=http://localhost:%d/v1", mockPort),
	)

	logFile, _ := os.Create("bench_server.log")
	defer logFile.Close()
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	defer func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	}()

	waitForApp(fmt.Sprintf("http://localhost:%d/api/health", appPort))

	mode := "Buffered"
	body := `{"model": "gpt-3.5-turbo", "prompt": "Hello"}`
	if *stream {
		mode = "Streaming"
		body = `{"model": "gpt-3.5-turbo", "prompt": "Hello", "stream": true}`
	}
	fmt.Printf("Running %s benchmark: %s duration, %d req/s\n", mode, *duration, *rps)

	targeter := func(t *vegeta.Target) error {
		t.Method = "POST"
		t.URL = fmt.Sprintf("http://localhost:%d/api/completions", appPort)
		t.Body = []byte(body)
		t.Header = http.Header{
			"Content-Type": []string{"application/json"},
		}
		return nil
	}

	attacker := vegeta.NewAttacker(vegeta.KeepAlive(true))
	var metrics vegeta.Metrics

	for res := range attacker.Attack(targeter, vegeta.Rate{Freq: *rps, Per: time.Second}, *duration, "Benchmark") {
		metrics.Add(res)
	}
	metrics.Close()

	fmt.Println("--------------------------------------------------")
	fmt.Println("99th percentile: ", metrics.Latencies.P99)
	fmt.Println("Mean:            ", metrics.Latencies.Mean)
	fmt.Println("Max:             ", metrics.Latencies.Max)
	fmt.Printf("Success:         %.2f%%\n", metrics.Success*100)
	fmt.Printf("Throughput:      %.2f req/s\n", metrics.Throughput)
	fmt.Println("--------------------------------------------------")

	if len(metrics.Errors) > 0 {
		fmt.Println("Errors (first 5):")
		for i, msg := range metrics.Errors {
			if i >= 5 {
				break
			}
			fmt.Println(msg)
		}
	}
}

// startMockUpstream serves a minimal OpenAI-protocol endpoint so the
// benchmark measures routing overhead, not a real provider.
func startMockUpstream() {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": [{"id": "gpt-3.5-turbo", "owned_by": "openai"}]}`))
	})

	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&req)

		if val, ok := req["stream"].(bool); ok && val {
			w.Header().Set("Content-Type", "text/event-stream")
			flusher, _ := w.(http.Flusher)
			for _, chunk := range streamChunks {
				time.Sleep(20 * time.Millisecond)
				_, _ = w.Write(chunk)
				flusher.Flush()
			}
			return
		}

		time.Sleep(10 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(unaryResp)
	})

	_ = http.ListenAndServe(fmt.Sprintf(":%d", mockPort), mux)
}

func waitForApp(url string) {
	for i := 0; i < 20; i++ {
		resp, err := http.Get(url)
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return
		}
		time.Sleep(500 * time.Millisecond)
	}
	log.Fatal("Server timed out")
}
