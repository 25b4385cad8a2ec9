package projectfile

import (
	"os"
	"path/filepath"
	"testing"
)

func writeProject(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, Filename)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write project file: %v", err)
	}
	return path
}

func TestLoad_DefaultsStatusToActive(t *testing.T) {
	path := writeProject(t, "---\nname: migrate-auth\ndescription: swap auth providers\n---\nbody\n")

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.Status != StatusActive {
		t.Errorf("Status = %q, want active", p.Status)
	}
}

func TestValidate_RejectsUnrecognizedStatus(t *testing.T) {
	p := &Project{Name: "x", Status: "paused"}
	if err := Validate(p); err == nil {
		t.Fatal("expected error for unrecognized status")
	}
}

func TestTransition_LegalMoves(t *testing.T) {
	cases := []struct {
		from, to Status
	}{
		{StatusActive, StatusSuspended},
		{StatusSuspended, StatusActive},
		{StatusActive, StatusCompleted},
		{StatusCompleted, StatusArchived},
	}
	for _, c := range cases {
		p := &Project{Name: "x", Status: c.from}
		if err := p.Transition(c.to); err != nil {
			t.Errorf("Transition(%s -> %s) error = %v", c.from, c.to, err)
		}
		if p.Status != c.to {
			t.Errorf("Status after transition = %q, want %q", p.Status, c.to)
		}
	}
}

func TestTransition_IllegalMoves(t *testing.T) {
	cases := []struct {
		from, to Status
	}{
		{StatusArchived, StatusActive},
		{StatusCompleted, StatusActive},
		{StatusSuspended, StatusCompleted},
		{StatusActive, StatusArchived},
	}
	for _, c := range cases {
		p := &Project{Name: "x", Status: c.from}
		if err := p.Transition(c.to); err == nil {
			t.Errorf("Transition(%s -> %s) expected error, got nil", c.from, c.to)
		}
		if p.Status != c.from {
			t.Errorf("Status mutated on illegal transition: %q", p.Status)
		}
	}
}

func TestLayout_EnsureDirsCreatesConventionalStructure(t *testing.T) {
	root := t.TempDir()
	layout := NewLayout(root)
	if err := layout.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs() error = %v", err)
	}

	for _, dir := range []string{layout.SessionDir(), layout.MemoryFactsDir(), layout.MemoryEpisodesDir(), layout.TasksDir(), layout.SkillsDir()} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Errorf("expected %s to exist: %v", dir, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}
}
