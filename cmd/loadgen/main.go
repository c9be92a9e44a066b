package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Rotating query mix: three instants against the overlapping windows of
// the seeded catalog, one next-day query, one unknown product.
var queries = []string{
	"productId=35455&brandId=1&date=14/06/2020&time=10:00",
	"productId=35455&brandId=1&date=14/06/2020&time=16:00",
	"productId=35455&brandId=1&date=14/06/2020&time=21:00",
	"productId=35455&brandId=1&date=15/06/2020&time=10:00",
	"productId=99999&brandId=1&date=14/06/2020&time=10:00",
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "service base URL")
	total := flag.Int("n", 200, "total requests")
	concurrency := flag.Int("c", 20, "concurrent workers")
	flag.Parse()

	var found, notFound, unavailable, other atomic.Int64
	client := &http.Client{Timeout: 5 * time.Second}

	jobs := make(chan int)
	var wg sync.WaitGroup
	start := time.Now()

	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				resp, err := client.Get(*baseURL + "/api/prices/filter?" + queries[i%len(queries)])
				if err != nil {
					other.Add(1)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()

				switch resp.StatusCode {
				case http.StatusOK:
					found.Add(1)
				case http.StatusNotFound:
					notFound.Add(1)
				case http.StatusServiceUnavailable:
					unavailable.Add(1)
				default:
					other.Add(1)
				}
			}
		}()
	}

	for i := 0; i < *total; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	elapsed := time.Since(start)

	fmt.Println("========== LOAD TEST RESULTS ==========")
	fmt.Printf("Total Requests:   %d\n", *total)
	fmt.Printf("Found (200):      %d\n", found.Load())
	fmt.Printf("Not Found (404):  %d\n", notFound.Load())
	fmt.Printf("Unavailable (503): %d\n", unavailable.Load())
	fmt.Printf("Other:            %d\n", other.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Printf("Throughput:       %.0f req/s\n", float64(*total)/elapsed.Seconds())
	fmt.Println("=======================================")
}
