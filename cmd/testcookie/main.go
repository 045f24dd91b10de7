package main

import (
	"bufio"
	"context"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	targetURLs  []string
	workerCount int
	engineLog   *log.Logger
)

const workerStaggerDelay = 50 * time.Millisecond

type moduleLogger struct {
	logger *log.Logger
}

func (m *moduleLogger) Log(format string, args ...any) {
	m.logger.Printf("      "+format, args...)
}

func main() {
	parseArgs()

	logFile, modLog := setupLogging()
	defer logFile.Close()

	_ = godotenv.Load()

	proxyManager := loadProxies()
	scheduler := createScheduler(proxyManager, modLog)

	os.Exit(run(scheduler))
}

func parseArgs() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: testcookie <url|url-file> <worker-count>\nExamples:\n  testcookie https://gated.example.com/page 1\n  testcookie urls.txt 10")
	}

	target := os.Args[1]
	count, err := strconv.Atoi(os.Args[2])
	if err != nil || count <= 0 {
		log.Fatal("worker-count must be a positive integer")
	}
	workerCount = count

	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		targetURLs = []string{target}
		return
	}

	urls, err := readURLFile(target)
	if err != nil {
		log.Fatalf("Failed to read URL file: %v", err)
	}
	if len(urls) == 0 {
		log.Fatalf("No URLs found in %s", target)
	}
	targetURLs = urls
}

func readURLFile(filename string) ([]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var urls []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, scanner.Err()
}

func setupLogging() (*os.File, *log.Logger) {
	logFile, err := os.OpenFile("testcookie.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	engineLog = log.New(io.MultiWriter(os.Stdout, logFile), "", log.LstdFlags)
	modLog := log.New(io.MultiWriter(os.Stdout, logFile), "", log.LstdFlags)
	return logFile, modLog
}

func loadProxies() *ProxyManager {
	proxyManager, err := NewProxyManager(GetProxyFile())
	if err != nil {
		engineLog.Fatalf("Failed to load proxies: %v", err)
	}
	if proxyManager.Count() == 0 {
		engineLog.Printf("No proxies configured, connecting directly")
	} else {
		engineLog.Printf("Loaded %d proxies", proxyManager.Count())
	}
	return proxyManager
}

func createScheduler(proxyManager *ProxyManager, modLog *log.Logger) *Scheduler {
	scheduler, err := NewScheduler(workerCount, proxyManager, workerStaggerDelay, &moduleLogger{logger: modLog})
	if err != nil {
		engineLog.Fatalf("Failed to create scheduler: %v", err)
	}
	return scheduler
}

func run(scheduler *Scheduler) int {
	engineLog.Printf("Starting %d concurrent workers for %d URL(s) (stagger: %v)...", workerCount, len(targetURLs), workerStaggerDelay)

	ctx := context.Background()
	scheduler.Start(ctx)

	go func() {
		for _, u := range targetURLs {
			scheduler.Submit(u)
		}
	}()

	var done, failed int
	for result := range scheduler.Results() {
		done++
		if result.Error != nil {
			failed++
			engineLog.Printf("[%d/%d] FAILED: %s: %v", done, len(targetURLs), result.URL, result.Error)
		} else {
			solved := ""
			if result.Solved {
				solved = " (challenge solved)"
			}
			engineLog.Printf("[%d/%d] %d %s, %d bytes%s", done, len(targetURLs), result.Status, result.URL, result.Bytes, solved)
		}
		if done >= len(targetURLs) {
			break
		}
	}

	scheduler.Close()

	engineLog.Printf("=== Complete: %d fetched, %d failed ===", done-failed, failed)
	if failed > 0 {
		return 1
	}
	return 0
}
