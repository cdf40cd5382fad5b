package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const (
	lockRetryInterval  = 50 * time.Millisecond
	lockAcquireTimeout = 5 * time.Second
	lockStaleAfter     = 30 * time.Second
	maxBackupFiles     = 5
)

// writeFileLocked replaces path with raw under a sibling lock file, keeping a
// timestamped backup of the previous content.
func writeFileLocked(path string, raw []byte) error {
	if path == "" {
		return fmt.Errorf("config path is required")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	unlock, err := acquireFileLock(path+".lock", lockAcquireTimeout, lockStaleAfter)
	if err != nil {
		return fmt.Errorf("acquire config file lock: %w", err)
	}
	defer unlock()

	mode := os.FileMode(0o600)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
		if err := backupFile(path, mode); err != nil {
			return err
		}
		pruneBackups(path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp config file: %w", err)
	}
	tmpPath := tmp.Name()
	done := false
	defer func() {
		if !done {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp config file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return fmt.Errorf("chmod temp config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace config file: %w", err)
	}
	done = true
	return nil
}

func acquireFileLock(lockPath string, timeout, staleAfter time.Duration) (func(), error) {
	deadline := time.Now().Add(timeout)
	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())
			_ = f.Close()
			return func() { _ = os.Remove(lockPath) }, nil
		}
		if !os.IsExist(err) {
			return nil, err
		}
		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > staleAfter {
			_ = os.Remove(lockPath)
			continue
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("lock timeout after %s", timeout)
		}
		time.Sleep(lockRetryInterval)
	}
}

func backupFile(path string, mode os.FileMode) error {
	target := fmt.Sprintf("%s.%s", path, time.Now().Format("060102150405"))
	for i := 1; ; i++ {
		if _, err := os.Stat(target); os.IsNotExist(err) {
			break
		} else if err != nil {
			return fmt.Errorf("stat backup path: %w", err)
		}
		target = fmt.Sprintf("%s.%s.%d", path, time.Now().Format("060102150405"), i)
	}

	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config for backup: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode)
	if err != nil {
		return fmt.Errorf("create config backup: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(target)
		return fmt.Errorf("copy config backup: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(target)
		return fmt.Errorf("close config backup: %w", err)
	}
	return nil
}

// pruneBackups keeps the newest maxBackupFiles backups.
func pruneBackups(path string) {
	files, err := filepath.Glob(path + ".[0-9]*")
	if err != nil || len(files) <= maxBackupFiles {
		return
	}
	sort.Strings(files)
	for _, f := range files[:len(files)-maxBackupFiles] {
		_ = os.Remove(f)
	}
}
