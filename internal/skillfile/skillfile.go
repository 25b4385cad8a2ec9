// Package skillfile parses skill definition files: a SKILL.md with YAML
// frontmatter plus a markdown body that supports $ARGUMENTS substitution
// when invoked with free-form input.
package skillfile

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Filename is the expected filename for a skill definition.
const Filename = "SKILL.md"

const frontmatterDelimiter = "---"

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,63}$`)

// Skill is a parsed skill definition.
type Skill struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Content     string `yaml:"-"`
	Path        string `yaml:"-"`
}

// Load reads and parses a SKILL.md file at path.
func Load(path string) (*Skill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("skillfile: read %s: %w", path, err)
	}
	return Parse(data, filepath.Dir(path))
}

// Parse parses SKILL.md content, validating its frontmatter.
func Parse(data []byte, dir string) (*Skill, error) {
	frontmatter, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, fmt.Errorf("skillfile: %w", err)
	}

	var skill Skill
	if err := yaml.Unmarshal(frontmatter, &skill); err != nil {
		return nil, fmt.Errorf("skillfile: parse frontmatter: %w", err)
	}
	skill.Content = strings.TrimSpace(string(body))
	skill.Path = dir

	if err := Validate(&skill); err != nil {
		return nil, err
	}
	return &skill, nil
}

// Validate checks that a Skill meets the naming and required-field rules.
func Validate(skill *Skill) error {
	if skill.Name == "" {
		return fmt.Errorf("skillfile: name is required")
	}
	if !namePattern.MatchString(skill.Name) {
		return fmt.Errorf("skillfile: name %q must match %s", skill.Name, namePattern.String())
	}
	if skill.Description == "" {
		return fmt.Errorf("skillfile: description is required")
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

// argsTokenPattern matches $ARGUMENTS, $ARGUMENTS[N], or $N.
var argsTokenPattern = regexp.MustCompile(`\$ARGUMENTS\[(\d+)\]|\$ARGUMENTS|\$(\d+)`)

// Render substitutes $ARGUMENTS/$ARGUMENTS[N]/$N tokens in the skill's
// content with the space-split words of args. If the content contains no
// substitution token at all, args is appended as a trailing "ARGUMENTS: "
// line instead, so invoking a skill with no placeholders still sees the
// caller's input.
func (s *Skill) Render(args string) string {
	words := strings.Fields(args)

	if !argsTokenPattern.MatchString(s.Content) {
		if args == "" {
			return s.Content
		}
		return s.Content + "\n\nARGUMENTS: " + args
	}

	return argsTokenPattern.ReplaceAllStringFunc(s.Content, func(tok string) string {
		m := argsTokenPattern.FindStringSubmatch(tok)
		switch {
		case m[1] != "": // $ARGUMENTS[N]
			idx, _ := strconv.Atoi(m[1])
			if idx < len(words) {
				return words[idx]
			}
			return ""
		case m[2] != "": // $N
			idx, _ := strconv.Atoi(m[2])
			if idx < len(words) {
				return words[idx]
			}
			return ""
		default: // $ARGUMENTS
			return args
		}
	})
}
