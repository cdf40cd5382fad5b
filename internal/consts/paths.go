package consts

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	HomeDirName      = ".crawlwatch"
	ConfigFileName   = "config.yaml"
	JobsFileName     = "scheduled_jobs.json"
	RunsFileName     = "runs.jsonl"
	DefaultOutputDir = "crawls"
	DefaultConfigDir = "configs"
	DefaultTempDir   = "tmp"
)

// HomeDir is ~/.crawlwatch, or ./.crawlwatch when the user home is unknown.
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return HomeDirName
	}
	return filepath.Join(home, HomeDirName)
}

func DefaultConfigPath() string {
	return filepath.Join(HomeDir(), ConfigFileName)
}

func DefaultJobsPath() string {
	return filepath.Join(HomeDir(), JobsFileName)
}

func DefaultRunsPath() string {
	return filepath.Join(HomeDir(), RunsFileName)
}

func DefaultCrawlOutputDir() string {
	return filepath.Join(HomeDir(), DefaultOutputDir)
}

// DefaultFrogExecutable is the usual install location of the Screaming Frog CLI.
func DefaultFrogExecutable() string {
	switch runtime.GOOS {
	case "windows":
		return `C:\Program Files\Screaming Frog SEO Spider\ScreamingFrogSEOSpiderCli.exe`
	case "darwin":
		return "/Applications/Screaming Frog SEO Spider.app/Contents/MacOS/ScreamingFrogSEOSpiderCli"
	default:
		return "/usr/bin/screamingfrogseospider"
	}
}
