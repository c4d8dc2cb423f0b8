package artifacts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/zulandar/praktika/internal/workflow"
)

// Digest hashes a job declaration together with the content of the files its
// Digest.IncludePaths select below root (minus ExcludePaths). Two runs with the
// same digest are expected to produce the same result. Callers only cache jobs
// for which Job.Cacheable holds.
func Digest(job *workflow.Job, root string) (string, error) {
	h := sha256.New()
	fmt.Fprintf(h, "name=%s\ncommand=%s\ndocker=%s\n", job.Name, job.Command, job.RunInDocker)
	fmt.Fprintf(h, "runs_on=%s\nrequires=%s\n", strings.Join(job.RunsOn, ","), strings.Join(job.Requires, ","))

	files, err := digestFiles(job.Digest, root)
	if err != nil {
		return "", fmt.Errorf("artifacts: digest %q: %w", job.Name, err)
	}
	for _, rel := range files {
		f, err := os.Open(filepath.Join(root, rel))
		if err != nil {
			return "", fmt.Errorf("artifacts: digest %q: %w", job.Name, err)
		}
		fmt.Fprintf(h, "file=%s\n", filepath.ToSlash(rel))
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", fmt.Errorf("artifacts: digest %q: %w", job.Name, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// digestFiles expands include globs (directories are walked) relative to root
// and drops excluded files. The result is sorted and free of duplicates.
func digestFiles(d workflow.Digest, root string) ([]string, error) {
	var files []string
	for _, pattern := range d.IncludePaths {
		matches, err := filepath.Glob(filepath.Join(root, filepath.FromSlash(pattern)))
		if err != nil {
			return nil, fmt.Errorf("include %q: %w", pattern, err)
		}
		for _, m := range matches {
			err := filepath.WalkDir(m, func(p string, e fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				rel, err := filepath.Rel(root, p)
				if err != nil {
					return err
				}
				rel = filepath.ToSlash(rel)
				if e.IsDir() {
					if e.Name() == ".git" || (rel != "." && excluded(rel, d.ExcludePaths)) {
						return filepath.SkipDir
					}
					return nil
				}
				files = append(files, rel)
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
	}
	slices.Sort(files)
	files = slices.Compact(files)
	return slices.DeleteFunc(files, func(f string) bool {
		return excluded(f, d.ExcludePaths)
	}), nil
}

// excluded reports whether rel matches an exclude glob or lies below an
// excluded directory.
func excluded(rel string, patterns []string) bool {
	for _, p := range patterns {
		p = strings.TrimPrefix(strings.TrimSuffix(filepath.ToSlash(p), "/"), "./")
		if ok, _ := filepath.Match(p, rel); ok {
			return true
		}
		if strings.HasPrefix(rel, p+"/") {
			return true
		}
	}
	return false
}
