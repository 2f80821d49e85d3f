package kv

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/androidarduino/vrdb/cmd/util"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for vrdb servers",
		Long:    "",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 100
	perfKeySpread        = 100
	perfSkip             = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. put,get)"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the value for the put-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = viper.GetInt("keys")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for vrdb servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	config := util.GetClientConfig()
	fmt.Printf("Endpoint: %s\n", config.Endpoint)
	fmt.Printf("Timeout: %d sec\n", config.TimeoutSecond)
	fmt.Printf("Keys: %d\n", perfKeySpread)
	fmt.Println()

	fmt.Println("starting tests...")

	// Create results map
	results := make(map[string]testing.BenchmarkResult)

	putResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("put") {
			return
		}

		// prepare keys
		getKey, _ := getKeys("put")

		b.ResetTimer()

		counter := 0
		for i := 0; i < b.N; i++ {
			if err := kvClient.Put(getKey(counter), "test"); err != nil {
				log.Printf("(put) - error putting key: %v\n", err)
			}
			counter++
		}
	})

	results["put"] = putResult
	printResult("put", putResult)

	putLargeResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("put-large") {
			return
		}

		// prepare large value
		largeValue := strings.Repeat("x", perfLargeValueSizeKB*1024)

		// prepare keys
		getKey, _ := getKeys("put-large")

		b.ResetTimer()

		counter := 0
		for i := 0; i < b.N; i++ {
			if err := kvClient.Put(getKey(counter), largeValue); err != nil {
				log.Printf("(put-large) - error putting key: %v\n", err)
			}
			counter++
		}
	})

	results["put-large"] = putLargeResult
	printResult("put-large", putLargeResult)

	getResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("get") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("get")

		// put keys
		iter(func(k string) {
			if err := kvClient.Put(k, "test"); err != nil {
				log.Printf("(get) - error putting key: %v\n", err)
			}
		})

		b.ResetTimer()

		counter := 0
		for i := 0; i < b.N; i++ {
			if _, _, err := kvClient.Get(getKey(counter)); err != nil {
				log.Printf("(get) - error getting key: %v\n", err)
			}
			counter++
		}
	})

	results["get"] = getResult
	printResult("get", getResult)

	getMissResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("get-miss") {
			return
		}

		b.ResetTimer()

		counter := 0
		for i := 0; i < b.N; i++ {
			key := fmt.Sprintf("%s/get-miss-%d", perfKeyPrefix, counter%perfKeySpread)
			// not-found is the expected outcome here
			if _, _, err := kvClient.Get(key); err != nil {
				log.Printf("(get-miss) - error getting key: %v\n", err)
			}
			counter++
		}
	})

	results["get-miss"] = getMissResult
	printResult("get-miss", getMissResult)

	mixedResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("mixed") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("mixed")

		// put keys
		iter(func(k string) {
			if err := kvClient.Put(k, "test"); err != nil {
				log.Printf("(mixed) - error putting key: %v\n", err)
			}
		})

		b.ResetTimer()

		counter := 0
		for i := 0; i < b.N; i++ {
			key := getKey(counter)
			var err error
			switch counter % 2 {
			case 0: // put
				err = kvClient.Put(key, "test")
			case 1: // get
				_, _, err = kvClient.Get(key)
			}
			if err != nil {
				log.Printf("(mixed) - error performing operation (%d): %v\n", counter%2, err)
			}
			counter++
		}
	})

	results["mixed"] = mixedResult
	printResult("mixed", mixedResult)

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return err
		}
	}

	return nil
}

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) string {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Endpoint", "TimeoutSec", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	config := util.GetClientConfig()

	// Write test results
	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.NsPerOp() == 0 {
			skipped = "true"
			nsPerOp = 0
			opsPerSec = 0
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			config.Endpoint,
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
