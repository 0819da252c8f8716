package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileReader fetches a file from a remote repository.
type FileReader interface {
	GetFileContent(ctx context.Context, repo, path, ref string) ([]byte, error)
}

// RemoteInspector reads definitions through a repository contents API.
type RemoteInspector struct {
	files FileReader
	ref   string
}

// NewRemoteInspector creates an inspector reading files at ref. An empty
// ref reads the default branch.
func NewRemoteInspector(files FileReader, ref string) *RemoteInspector {
	return &RemoteInspector{files: files, ref: ref}
}

// Inspect fetches and parses the definition at path.
func (i *RemoteInspector) Inspect(ctx context.Context, repo, path string) (Definition, error) {
	data, err := i.files.GetFileContent(ctx, repo, path, i.ref)
	if err != nil {
		return Definition{}, fmt.Errorf("fetch %s: %w", path, err)
	}
	def, err := Parse(data)
	if err != nil {
		return Definition{}, fmt.Errorf("%s: %w", path, err)
	}
	def.Filename = filepath.Base(path)
	return def, nil
}

// LocalInspector reads definitions from a checkout on disk. The repo
// argument of Inspect is ignored.
type LocalInspector struct {
	root string
}

// NewLocalInspector creates an inspector rooted at a repository checkout.
func NewLocalInspector(root string) *LocalInspector {
	return &LocalInspector{root: root}
}

// Inspect parses the definition at path, relative to the checkout root.
func (i *LocalInspector) Inspect(_ context.Context, _ string, path string) (Definition, error) {
	return parseFile(filepath.Join(i.root, filepath.FromSlash(path)))
}

// Discover finds all dispatchable workflows in .github/workflows under root.
// A missing directory yields no workflows and no error.
func Discover(root string) ([]Definition, error) {
	dir := filepath.Join(root, ".github", "workflows")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var defs []Definition
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !isWorkflowFile(name) {
			continue
		}
		def, err := parseFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		if def.Dispatchable {
			defs = append(defs, def)
		}
	}

	sort.Slice(defs, func(a, b int) bool { return defs[a].Filename < defs[b].Filename })
	return defs, nil
}

func parseFile(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, err
	}
	def, err := Parse(data)
	if err != nil {
		return Definition{}, fmt.Errorf("%s: %w", path, err)
	}
	def.Filename = filepath.Base(path)
	return def, nil
}

func isWorkflowFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yml" || ext == ".yaml"
}
