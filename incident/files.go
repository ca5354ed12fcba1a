package incident

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// defaultMaxLines caps how much of any single file is read.
const defaultMaxLines = 500

// matchesPerPattern limits how many files one pattern may pull in, so a
// vague pattern like "config" cannot flood the prompt.
const matchesPerPattern = 2

// allowedExtensions are the file types the auditor may read.
var allowedExtensions = map[string]bool{
	".py": true, ".js": true, ".ts": true, ".jsx": true, ".tsx": true,
	".java": true, ".go": true, ".rs": true, ".cpp": true, ".c": true, ".h": true,
	".yaml": true, ".yml": true, ".json": true, ".toml": true,
	".md": true, ".txt": true, ".rst": true,
	".html": true, ".css": true, ".scss": true,
	".sql":  true,
	".sh":   true, ".bash": true, ".zsh": true,
	".dockerfile": true, ".containerfile": true,
}

// blockedPathPatterns are substrings that mark a path as off limits
// regardless of extension.
var blockedPathPatterns = []string{
	".env",
	"secrets", "credentials", "password",
	".pem", ".key", ".crt", ".pfx",
	"id_rsa", "id_ed25519",
	".aws/credentials",
}

// excludedDirs are never descended into during pattern searches.
var excludedDirs = map[string]bool{
	"node_modules": true, ".git": true, "__pycache__": true,
	"venv": true, ".venv": true, "vendor": true,
}

// FileReader implements tool.Tool for sandboxed code reading during the
// audit phase. All access stays under the configured base directory, only
// code and config extensions are readable, and paths matching sensitive
// patterns (.env, keys, credentials) are refused outright.
//
// Input parameters:
//   - pattern: a file name or fragment to locate, e.g. "docker-compose.yml"
//     or "database" (required)
//
// Output:
//   - files: list of {path, content, language, lines}
//   - formatted: the files rendered as one prompt-ready string
type FileReader struct {
	baseDir  string
	maxLines int
}

// NewFileReader creates a sandboxed reader rooted at baseDir. An empty
// baseDir uses the current working directory.
func NewFileReader(baseDir string) *FileReader {
	if baseDir == "" {
		baseDir = "."
	}
	return &FileReader{
		baseDir:  baseDir,
		maxLines: defaultMaxLines,
	}
}

// Name returns the tool identifier.
func (f *FileReader) Name() string {
	return "read_file"
}

// Call locates files matching the pattern inside the sandbox and returns
// their contents.
func (f *FileReader) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	pattern, ok := input["pattern"].(string)
	if !ok || pattern == "" {
		return nil, fmt.Errorf("pattern parameter required (string)")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matches, err := f.findFiles(pattern)
	if err != nil {
		return nil, fmt.Errorf("search for %q: %w", pattern, err)
	}

	files := make([]interface{}, 0, len(matches))
	var formatted strings.Builder
	for _, path := range matches {
		content, lines, err := f.readFile(path)
		if err != nil {
			continue
		}
		lang := detectLanguage(path)
		files = append(files, map[string]interface{}{
			"path":     path,
			"content":  content,
			"language": lang,
			"lines":    lines,
		})
		fmt.Fprintf(&formatted, "--- File: %s ---\nLanguage: %s\nLines: %d\n\n```%s\n%s\n```\n\n",
			path, lang, lines, lang, content)
	}

	return map[string]interface{}{
		"files":     files,
		"formatted": strings.TrimSpace(formatted.String()),
	}, nil
}

// findFiles walks the sandbox looking for readable files whose name contains
// the pattern, capped at matchesPerPattern results in sorted order.
func (f *FileReader) findFiles(pattern string) ([]string, error) {
	pattern = strings.ToLower(filepath.Base(pattern))

	var matches []string
	err := filepath.WalkDir(f.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if excludedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.Contains(strings.ToLower(d.Name()), pattern) {
			return nil
		}
		if !f.isSafePath(path) || !allowedExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		matches = append(matches, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(matches)
	if len(matches) > matchesPerPattern {
		matches = matches[:matchesPerPattern]
	}
	return matches, nil
}

// isSafePath rejects paths outside the sandbox or matching a sensitive
// pattern.
func (f *FileReader) isSafePath(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	base, err := filepath.Abs(f.baseDir)
	if err != nil {
		return false
	}
	if !strings.HasPrefix(abs, base+string(filepath.Separator)) && abs != base {
		return false
	}

	lower := strings.ToLower(abs)
	for _, blocked := range blockedPathPatterns {
		if strings.Contains(lower, blocked) {
			return false
		}
	}
	return true
}

// readFile reads up to maxLines lines of one file.
func (f *FileReader) readFile(path string) (string, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = file.Close() }()

	var sb strings.Builder
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lines := 0
	for scanner.Scan() {
		if lines >= f.maxLines {
			fmt.Fprintf(&sb, "\n... [truncated at %d lines] ...\n", f.maxLines)
			break
		}
		sb.WriteString(scanner.Text())
		sb.WriteString("\n")
		lines++
	}
	if err := scanner.Err(); err != nil {
		return "", 0, err
	}
	return sb.String(), lines, nil
}

func detectLanguage(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		return "python"
	case ".js", ".jsx":
		return "javascript"
	case ".ts", ".tsx":
		return "typescript"
	case ".java":
		return "java"
	case ".go":
		return "go"
	case ".rs":
		return "rust"
	case ".cpp":
		return "cpp"
	case ".c", ".h":
		return "c"
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	case ".toml":
		return "toml"
	case ".md":
		return "markdown"
	case ".html":
		return "html"
	case ".css", ".scss":
		return "css"
	case ".sql":
		return "sql"
	case ".sh", ".bash", ".zsh":
		return "bash"
	case ".dockerfile", ".containerfile":
		return "dockerfile"
	default:
		return "text"
	}
}
