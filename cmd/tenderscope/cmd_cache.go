package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the filesystem cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache usage per artifact kind",
	RunE:  runCacheStats,
}

var cacheCleanupMaxAgeHours int

var cacheCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove cache entries older than the retention age",
	RunE:  runCacheCleanup,
}

func init() {
	cacheCleanupCmd.Flags().IntVar(&cacheCleanupMaxAgeHours, "max-age-hours", 0, "Retention age in hours (default from config)")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheCleanupCmd)
}

func runCacheStats(*cobra.Command, []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	s := a.cache.CollectStats()
	fmt.Printf("cache root: %s\n", a.cache.BaseDir())
	fmt.Printf("  ocr:   %d files, %s\n", s.OCRFiles, fmtBytes(s.OCRBytes))
	fmt.Printf("  html:  %d files, %s\n", s.HTMLFiles, fmtBytes(s.HTMLBytes))
	fmt.Printf("  docs:  %d files, %s\n", s.DocFiles, fmtBytes(s.DocBytes))
	fmt.Printf("  total: %d files\n", s.TotalFiles())
	return nil
}

func runCacheCleanup(*cobra.Command, []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	hours := cacheCleanupMaxAgeHours
	if hours <= 0 {
		hours = a.cfg.Cache.MaxAgeHours
	}
	before := a.cache.CollectStats().TotalFiles()
	a.cache.CleanupOlderThan(time.Duration(hours) * time.Hour)
	after := a.cache.CollectStats().TotalFiles()
	fmt.Printf("removed %d cache files older than %dh\n", before-after, hours)
	return nil
}
