// Package projectfile parses project definition files (PROJECT.md with
// YAML frontmatter) and enforces the legal status transitions for the
// project lifecycle, plus the on-disk directory conventions a project
// directory follows (session/, memory/facts/, memory/episodes/, tasks/,
// skills/).
package projectfile

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Filename is the expected filename for a project definition.
const Filename = "PROJECT.md"

const frontmatterDelimiter = "---"

// Status is a project's lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

// legalTransitions is the directed transition table: active can suspend
// or resume, and complete; completed can archive. Every other move is
// rejected.
var legalTransitions = map[Status]map[Status]bool{
	StatusActive:    {StatusSuspended: true, StatusCompleted: true},
	StatusSuspended: {StatusActive: true},
	StatusCompleted: {StatusArchived: true},
	StatusArchived:  {},
}

// CanTransition reports whether moving from `from` to `to` is legal.
func CanTransition(from, to Status) bool {
	return legalTransitions[from][to]
}

// Project is a parsed project definition.
type Project struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Status      Status `yaml:"status"`
	Content     string `yaml:"-"`
	Path        string `yaml:"-"`
}

// Load reads and parses a PROJECT.md file at path.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("projectfile: read %s: %w", path, err)
	}
	return Parse(data, filepath.Dir(path))
}

// Parse parses PROJECT.md content, defaulting Status to active when unset.
func Parse(data []byte, dir string) (*Project, error) {
	frontmatter, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, fmt.Errorf("projectfile: %w", err)
	}

	var project Project
	if err := yaml.Unmarshal(frontmatter, &project); err != nil {
		return nil, fmt.Errorf("projectfile: parse frontmatter: %w", err)
	}
	project.Content = strings.TrimSpace(string(body))
	project.Path = dir
	if project.Status == "" {
		project.Status = StatusActive
	}

	if err := Validate(&project); err != nil {
		return nil, err
	}
	return &project, nil
}

// Validate checks that a Project has a name and a recognized status.
func Validate(p *Project) error {
	if p.Name == "" {
		return fmt.Errorf("projectfile: name is required")
	}
	switch p.Status {
	case StatusActive, StatusSuspended, StatusCompleted, StatusArchived:
	default:
		return fmt.Errorf("projectfile: unrecognized status %q", p.Status)
	}
	return nil
}

// Transition moves p to newStatus, returning an error if the move is not
// in legalTransitions.
func (p *Project) Transition(newStatus Status) error {
	if !CanTransition(p.Status, newStatus) {
		return fmt.Errorf("projectfile: illegal transition %s -> %s", p.Status, newStatus)
	}
	p.Status = newStatus
	return nil
}

// Layout is the set of conventional subdirectories under a project root.
type Layout struct {
	Root string
}

// NewLayout returns the conventional directory layout rooted at root.
func NewLayout(root string) Layout { return Layout{Root: root} }

func (l Layout) SessionDir() string       { return filepath.Join(l.Root, "session") }
func (l Layout) MemoryFactsDir() string   { return filepath.Join(l.Root, "memory", "facts") }
func (l Layout) MemoryEpisodesDir() string { return filepath.Join(l.Root, "memory", "episodes") }
func (l Layout) TasksDir() string         { return filepath.Join(l.Root, "tasks") }
func (l Layout) SkillsDir() string        { return filepath.Join(l.Root, "skills") }

// EnsureDirs creates every conventional subdirectory under the layout's
// root, idempotently.
func (l Layout) EnsureDirs() error {
	dirs := []string{l.SessionDir(), l.MemoryFactsDir(), l.MemoryEpisodesDir(), l.TasksDir(), l.SkillsDir()}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("projectfile: create %s: %w", dir, err)
		}
	}
	return nil
}

func splitFrontmatter(data []byte) ([]byte, []byte, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))

	if !scanner.Scan() {
		return nil, nil, fmt.Errorf("empty file")
	}
	if strings.TrimSpace(scanner.Text()) != frontmatterDelimiter {
		return nil, nil, fmt.Errorf("missing opening frontmatter delimiter")
	}

	var frontmatterLines []string
	closed := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == frontmatterDelimiter {
			closed = true
			break
		}
		frontmatterLines = append(frontmatterLines, line)
	}
	if !closed {
		return nil, nil, fmt.Errorf("missing closing frontmatter delimiter")
	}

	var bodyLines []string
	for scanner.Scan() {
		bodyLines = append(bodyLines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("scanner error: %w", err)
	}

	return []byte(strings.Join(frontmatterLines, "\n")), []byte(strings.Join(bodyLines, "\n")), nil
}
